package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is available to callers that need to turn Response.NotFound into an error.
	ErrNotFound = errors.New("remote resource not found")
	// ErrRateLimited is wrapped by RateLimitedError once the retry budget is exhausted.
	ErrRateLimited = errors.New("remote rate limit exceeded")
	// ErrClosed is returned for requests issued after Close.
	ErrClosed = errors.New("gateway closed")
)

// ConfigError reports missing credentials at construction time.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("remote config: %s is required", e.Field)
}

// AuthError is returned for 401/403 responses. It is never retried.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote authentication failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote authentication failed (%d)", e.Status)
}

// RateLimitedError is returned when every attempt was answered with 429.
type RateLimitedError struct {
	Endpoint string
	Attempts int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited after %d attempts", e.Endpoint, e.Attempts)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// RemoteError wraps a non-2xx response, or a 2xx response whose body carries a
// non-zero provider code.
type RemoteError struct {
	Endpoint string
	Status   int
	Code     int
	Message  string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: remote error (status %d", e.Endpoint, e.Status)
	if e.Code != 0 {
		msg += fmt.Sprintf(", code %d", e.Code)
	}
	msg += ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Validation reports whether the provider rejected the payload itself. Such
// errors are recorded per item and never retried.
func (e *RemoteError) Validation() bool {
	return e.Status < http.StatusInternalServerError
}

// NetworkError wraps transport failures (connection refused, reset, short read).
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient failure worth another attempt.
func IsRetryable(err error) bool {
	var (
		rl  *RateLimitedError
		ne  *NetworkError
		rem *RemoteError
	)
	switch {
	case errors.As(err, &rl), errors.As(err, &ne):
		return true
	case errors.As(err, &rem):
		return rem.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

// IsFatal reports whether err must abort the whole run rather than a single item.
func IsFatal(err error) bool {
	var (
		ae *AuthError
		ce *ConfigError
	)
	return errors.As(err, &ae) || errors.As(err, &ce)
}
