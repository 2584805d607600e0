package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastBackoff keeps test runtime negligible.
func fastBackoff(maxAttempts int) BackoffSpec {
	return BackoffSpec{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastBackoff(5), RetryTransient, func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return Transient(errors.New("blip"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPermanentErrorCalledExactlyOnce(t *testing.T) {
	calls := 0
	permanent := Permanent(errors.New("bad request"))

	err := Retry(context.Background(), fastBackoff(5), RetryTransient, func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastBackoff(3), RetryTransient, func(ctx context.Context) error {
		calls++
		return Transient(errors.New("still down"))
	})

	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryBreakerOpen(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastBackoff(5), RetryTransient, func(ctx context.Context) error {
		calls++
		return ErrBreakerOpen
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	spec := BackoffSpec{
		MaxAttempts:  5,
		InitialDelay: time.Minute, // would stall without cancellation
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, spec, RetryTransient, func(ctx context.Context) error {
			calls++
			return Transient(errors.New("blip"))
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestRetryComposesWithBreaker(t *testing.T) {
	b := NewBreaker("compose", BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Hour,
	})
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, fastBackoff(10), RetryTransient, func(ctx context.Context) error {
		return b.Call(ctx, func(ctx context.Context) error {
			calls++
			return Transient(errors.New("down"))
		})
	})

	// Two real attempts open the breaker; the third attempt is rejected
	// and the rejection is not retried.
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, calls)
}

func TestRetryResult(t *testing.T) {
	calls := 0
	got, err := RetryResult(context.Background(), fastBackoff(3), RetryTransient, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Transient(errors.New("blip"))
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestRetryableDecorator(t *testing.T) {
	calls := 0
	wrapped := Retryable(fastBackoff(4), RetryTransient, func(ctx context.Context) error {
		calls++
		if calls < 4 {
			return Transient(errors.New("blip"))
		}
		return nil
	})

	require.NoError(t, wrapped(context.Background()))
	assert.Equal(t, 4, calls)
}
