package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("message and unwrap", func(t *testing.T) {
		err := NewNetworkError("dial", baseErr)

		if err.Error() != "dial: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "dial: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("feed base: %w", NewNetworkError("subscribe", ErrConnectionFailed))

		var ne *NetworkError
		if !errors.As(wrapped, &ne) || ne.Op != "subscribe" {
			t.Errorf("Expected NetworkError with op subscribe, got %v", wrapped)
		}
		if !errors.Is(wrapped, ErrConnectionFailed) {
			t.Error("Expected wrapped error to match ErrConnectionFailed")
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("must be positive")
	err := &ConfigError{Field: "book.levels", Err: baseErr}

	if !errors.Is(err, baseErr) {
		t.Error("Expected ConfigError to wrap its cause")
	}

	expected := "config error [book.levels]: must be positive"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestValidationError_Is(t *testing.T) {
	err := &ValidationError{Field: "side", Reason: "must be buy or sell"}

	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("ValidationError should match ErrInvalidRequest")
	}
	if err.Error() != "invalid side: must be buy or sell" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
