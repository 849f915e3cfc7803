package reply

import (
	"errors"
	"fmt"
)

// Sentinel validation errors.
var (
	// ErrEmptyResponse marks a provider completion with no usable text.
	ErrEmptyResponse = errors.New("reply: empty response")
	// ErrUnsafeResponse marks a completion rejected by the output guard.
	ErrUnsafeResponse = errors.New("reply: unsafe response")
	// ErrNoHistory marks a generation request whose conversation carries no
	// usable turns after filtering. No provider is called in that case.
	ErrNoHistory = errors.New("reply: no conversation history")
)

// AuthenticationError signals the provider rejected our credentials. It is
// distinguished so callers can surface a configuration problem instead of a
// transient fault.
type AuthenticationError struct {
	Provider string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("reply: %s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// GenerationError wraps any other provider fault during completion.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reply: %s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
