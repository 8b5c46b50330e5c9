// Package shopify is the narrow Admin API collaborator: one GraphQL call shape, one REST
// call shape, both with throttling and 5xx retries.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fekuna/shopsync-service/config"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/shopify/dto"
)

type API interface {
	Graph(ctx context.Context, query string, variables map[string]any, out any) error
	REST(ctx context.Context, method, path string, body any, out any) error
}

// Factory hands out a client authenticated as one shop.
type Factory interface {
	ForShop(shop *model.Shop) API
}

type Config struct {
	// ShopDomain is "x.myshopify.com" or a full base URL.
	ShopDomain     string
	Token          string
	APIVersion     string
	Timeout        time.Duration
	RetryMax       int
	RetryBaseDelay time.Duration
}

type Client struct {
	config     Config
	httpClient *http.Client
	retryMax   int
	retryBase  time.Duration
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		config:     cfg,
		httpClient: httpClient,
		retryMax:   cfg.RetryMax,
		retryBase:  cfg.RetryBaseDelay,
	}
	if c.retryMax <= 0 {
		c.retryMax = defaultRetryMax
	}
	if c.retryBase <= 0 {
		c.retryBase = defaultRetryBaseDelay
	}
	return c
}

func (c *Client) endpoint(path string) (string, error) {
	domain := strings.TrimSpace(c.config.ShopDomain)
	if domain == "" {
		return "", errors.New("shopify shop domain is empty")
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	domain = strings.TrimRight(domain, "/")
	if c.config.APIVersion == "" {
		return "", errors.New("shopify api version is empty")
	}
	return domain + "/admin/api/" + c.config.APIVersion + "/" + strings.TrimLeft(path, "/"), nil
}

func (c *Client) Graph(ctx context.Context, query string, variables map[string]any, out any) error {
	endpoint, err := c.endpoint("graphql.json")
	if err != nil {
		return err
	}
	body, err := json.Marshal(dto.GraphQLRequest{Query: strings.TrimSpace(query), Variables: variables})
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		raw, err := c.shopifyAPIRequest(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			if attempt < c.retryMax && c.retryable(ctx, err) {
				if err := sleepWithContext(ctx, c.retryDelay(attempt, err)); err != nil {
					return err
				}
				continue
			}
			return err
		}

		var resp dto.GraphQLResponse[json.RawMessage]
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("shopify graphql response: %w", err)
		}
		if len(resp.Errors) > 0 {
			if isThrottleGraphQLError(resp.Errors) {
				if attempt < c.retryMax {
					if err := sleepWithContext(ctx, c.retryDelay(attempt, nil)); err != nil {
						return err
					}
					continue
				}
				return &ThrottledError{Message: formatGraphQLErrors(resp.Errors)}
			}
			return fmt.Errorf("shopify graphql errors: %s", formatGraphQLErrors(resp.Errors))
		}
		if out == nil {
			return nil
		}
		if len(resp.Data) == 0 || string(resp.Data) == "null" {
			return errors.New("shopify graphql response missing data")
		}
		return json.Unmarshal(resp.Data, out)
	}
}

// REST issues one Admin REST call. A body with an "errors" key is a failure even on 2xx.
func (c *Client) REST(ctx context.Context, method, path string, body any, out any) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}
	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	var raw []byte
	for attempt := 0; ; attempt++ {
		raw, err = c.shopifyAPIRequest(ctx, method, endpoint, payload)
		if err == nil {
			break
		}
		if attempt < c.retryMax && c.retryable(ctx, err) {
			if err := sleepWithContext(ctx, c.retryDelay(attempt, err)); err != nil {
				return err
			}
			continue
		}
		return err
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if errs, ok := envelope["errors"]; ok {
			return fmt.Errorf("shopify %s %s failed: %s", method, path, strings.TrimSpace(string(errs)))
		}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return IsTransient(err)
}

func (c *Client) shopifyAPIRequest(ctx context.Context, method string, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(resp, respBody)
	}
	return respBody, nil
}

func userErrorsToError(action string, errs []dto.UserError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			continue
		}
		if len(e.Field) > 0 {
			msg = fmt.Sprintf("%s: %s", strings.Join(e.Field, "."), msg)
		}
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		return fmt.Errorf("shopify %s failed with user errors", action)
	}
	return fmt.Errorf("shopify %s failed: %s", action, strings.Join(parts, "; "))
}

func formatGraphQLErrors(errs []dto.GraphQLError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			continue
		}
		if len(e.Path) > 0 {
			msg = fmt.Sprintf("%s (path: %v)", msg, e.Path)
		}
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		return "unknown graphql error"
	}
	return strings.Join(parts, "; ")
}

// ClientFactory builds per-shop clients sharing one http.Client.
type ClientFactory struct {
	cfg        config.ShopifyConfig
	httpClient *http.Client
}

func NewClientFactory(cfg config.ShopifyConfig) *ClientFactory {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClientFactory{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

func (f *ClientFactory) ForShop(shop *model.Shop) API {
	return NewClient(Config{
		ShopDomain: shop.Domain,
		Token:      shop.AccessToken,
		APIVersion: f.cfg.APIVersion,
	}, f.httpClient)
}
