package resilience

import (
	"context"
	"fmt"
	"time"
)

// Retry executes fn up to spec.MaxAttempts times. On success it returns
// immediately. On failure it returns immediately when the error is not
// retryable per the classifier or attempts are exhausted; otherwise it sleeps
// the backoff delay (honoring context cancellation) and tries again.
//
// Composition with a circuit breaker is the common pattern: wrap the unit of
// work with Breaker.Call first and retry the wrapped call; breaker-open
// rejections are classified non-retryable, so a known-down dependency fails
// fast instead of being hammered.
func Retry(ctx context.Context, spec BackoffSpec, retryable Classifier, fn func(ctx context.Context) error) error {
	if spec.MaxAttempts < 1 {
		spec.MaxAttempts = 1
	}
	if retryable == nil {
		retryable = RetryNothing
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !retryable(err) {
			return err
		}
		if attempt+1 >= spec.MaxAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		select {
		case <-time.After(spec.Delay(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("retry interrupted: %w (last error: %w)", ctx.Err(), err)
		}
	}
}

// RetryResult is the result-carrying variant of Retry.
func RetryResult[T any](ctx context.Context, spec BackoffSpec, retryable Classifier, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Retry(ctx, spec, retryable, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = fn(ctx)
		return attemptErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Retryable decorates a unit of work with a bounded retry loop, for call
// sites that want to build the retried function once and invoke it many
// times (task handlers, pool factories).
func Retryable(spec BackoffSpec, retryable Classifier, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return Retry(ctx, spec, retryable, fn)
	}
}
