package resilience

import (
	"context"
	"errors"
	"net"
)

// Classifier reports whether an error is safe to retry. Implementations must
// be total functions: they never panic and return false for nil errors and
// for error types they do not recognize, since retrying unknown errors is unsafe.
type Classifier func(err error) bool

// RetryTransient is the standard classifier: transient failures and I/O
// timeouts are retryable; permanent failures, breaker rejections, and
// anything unrecognized are not.
func RetryTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, ErrBreakerOpen) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// RetryNothing never retries. Useful for call sites that want the retry
// executor's shape without its behavior.
func RetryNothing(error) bool {
	return false
}

// Allow builds a classifier from an allow-list of error categories: an error
// is retryable only when errors.Is matches one of the targets. Breaker
// rejections are excluded regardless of the allow-list.
func Allow(targets ...error) Classifier {
	return func(err error) bool {
		if err == nil || errors.Is(err, ErrBreakerOpen) {
			return false
		}
		for _, target := range targets {
			if target != nil && errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}
