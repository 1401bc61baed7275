package strategy

import (
	"fmt"
	"time"
)

// Typed failures a strategy (typically a remote-backed one) can surface.
// The flow categorizer maps these to user-facing categories and recovery
// hints via errors.As.

// RateLimitError signals the upstream refused the call until RetryAfter
// elapses.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// AuthError signals missing or rejected credentials.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// NetworkError signals the upstream was unreachable.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Cause.Error()
}

func (e *NetworkError) Unwrap() error { return e.Cause }
