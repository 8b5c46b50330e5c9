package shopify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/shopsync-service/internal/shopify/dto"
)

const (
	defaultRetryMax       = 5
	defaultRetryBaseDelay = 500 * time.Millisecond
	retryMaxDelay         = 10 * time.Second
)

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
	retryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("shopify request failed: %s", e.Status)
	}
	return fmt.Sprintf("shopify request failed: %s: %s", e.Status, e.Body)
}

func newHTTPStatusError(resp *http.Response, body []byte) error {
	err := &HTTPStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
	if secs, convErr := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); convErr == nil && secs > 0 {
		err.retryAfter = time.Duration(secs * float64(time.Second))
	}
	return err
}

// IsTransient reports whether err is worth retrying later: throttling, upstream 5xx or a
// network failure.
func IsTransient(err error) bool {
	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return isRetryableStatus(httpErr.StatusCode)
	}
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ThrottledError is a GraphQL response that exhausted the query cost budget.
type ThrottledError struct {
	Message string
}

func (e *ThrottledError) Error() string { return "shopify graphql throttled: " + e.Message }

func isThrottleGraphQLError(errs []dto.GraphQLError) bool {
	for _, e := range errs {
		if strings.Contains(strings.ToLower(e.Message), "throttled") {
			return true
		}
		if code, ok := e.Extensions["code"].(string); ok && strings.EqualFold(code, "THROTTLED") {
			return true
		}
	}
	return false
}

func (c *Client) retryDelay(attempt int, err error) time.Duration {
	if attempt < 0 {
		return 0
	}
	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) && httpErr.retryAfter > 0 {
		return min(httpErr.retryAfter, retryMaxDelay)
	}
	delay := c.retryBase << attempt
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
