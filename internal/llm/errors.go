package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrDisabled means the completion service has no usable credentials.
// Callers substitute a canned response instead of failing.
var ErrDisabled = errors.New("completion service disabled: configure a valid API key")

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API request failed: %d %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API request failed: %s", e.Provider, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt: rate limits,
// server errors, and transport failures. Context errors never are.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrDisabled) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 || apiErr.StatusCode == 0
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
