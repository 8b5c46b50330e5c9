package queue

import (
	"encoding/json"
	"errors"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type retryError struct {
	err     error
	payload json.RawMessage
}

func (e *retryError) Error() string { return e.err.Error() }
func (e *retryError) Unwrap() error { return e.err }

// RetryWith asks for a retry that runs with a replacement payload, e.g. only the items a
// partially completed job did not get to.
func RetryWith(err error, payload any) error {
	raw, mErr := json.Marshal(payload)
	if mErr != nil {
		return errors.Join(err, mErr)
	}
	return &retryError{err: err, payload: raw}
}

func retryPayload(err error) (json.RawMessage, bool) {
	var r *retryError
	if errors.As(err, &r) {
		return r.payload, true
	}
	return nil, false
}
