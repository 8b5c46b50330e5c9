package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrResourceContention is returned when a row lock could not be taken within the
	// configured wait. Callers surface it so the queue retries the whole unit of work.
	ErrResourceContention = errors.New("resource contention")

	// ErrInvalidTransition is returned when a status change would leave a terminal state
	// or skip a step.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrMalformedPayload = errors.New("malformed payload")

	ErrInvalidInput = errors.New("invalid input")
)
