package api

import (
	"errors"
	"fmt"
)

// ErrNoCredential is returned when a call requiring authorization runs
// without a stored token.
var ErrNoCredential = errors.New("no credential available")

// NetworkError wraps transport-level failures (DNS, refused connection,
// timeout). These are recoverable; the caller may retry manually.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError signals a missing or expired credential (HTTP 401/403). Not
// recoverable without re-authentication.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization rejected (status %d)", e.Status)
}

// APIError is any other non-2xx response, carrying the backend's message
// field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
