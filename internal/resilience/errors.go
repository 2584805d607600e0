package resilience

import (
	"errors"
	"fmt"
)

// Common resilience errors used across the application.
var (
	// ErrTransient marks failures caused by temporary conditions
	// (network blips, timeouts) that are safe to retry.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent marks failures that will not succeed on retry
	// (validation, auth, not-found).
	ErrPermanent = errors.New("permanent failure")

	// ErrBreakerOpen is returned when a circuit breaker rejects a call
	// without invoking the guarded function.
	ErrBreakerOpen = errors.New("circuit breaker is open")
)

// Transient wraps err so that errors.Is(result, ErrTransient) holds.
// A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent wraps err so that errors.Is(result, ErrPermanent) holds.
// A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
