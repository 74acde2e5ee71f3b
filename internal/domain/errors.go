package domain

import (
	"errors"
	"fmt"
)

// NetworkError tags a feed transport failure with the step that failed.
// Feed workers retry every NetworkError with the same fixed delay.
type NetworkError struct {
	Op  string // Operation that failed (e.g., "dial", "subscribe")
	Err error  // Underlying error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a network error for op
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a trade request before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match every validation failure with errors.Is(err, ErrInvalidRequest).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

var (
	// ErrConnectionFailed is returned when a feed websocket dial fails.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidQuote is returned when a feed value is not a positive finite number.
	ErrInvalidQuote = errors.New("invalid quote")

	// ErrInvalidRequest is wrapped by every ValidationError.
	ErrInvalidRequest = errors.New("invalid trade request")

	// ErrReferenceUnavailable means both feeds have not reported yet.
	ErrReferenceUnavailable = errors.New("reference price unavailable")

	// ErrUnknownSource is returned for a quote tagged with a source other than base or fx.
	ErrUnknownSource = errors.New("unknown quote source")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
