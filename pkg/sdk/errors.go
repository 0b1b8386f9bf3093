package formdex

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped into every failed API call.
// Use errors.Is() to check.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("service unavailable")
)

// APIError is the decoded error body of a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("formdex: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Unwrap maps the HTTP status to a sentinel error.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 400:
		return ErrInvalidArgument
	case 401:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	case 502, 503:
		return ErrUnavailable
	default:
		return nil
	}
}
