package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("dependency down")

func failingCall(ctx context.Context) error { return errDown }
func succeedingCall(ctx context.Context) error { return nil }

func newTestBreaker(cfg BreakerConfig) *Breaker {
	return NewBreaker("test", cfg)
}

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		RecoveryTimeout:  time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, b.Call(ctx, failingCall), errDown)
		assert.Equal(t, StateClosed, b.State())
	}

	assert.ErrorIs(t, b.Call(ctx, failingCall), errDown)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})
	ctx := context.Background()

	require.Error(t, b.Call(ctx, failingCall))
	require.Equal(t, StateOpen, b.State())

	invoked := false
	err := b.Call(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, invoked, "guarded function must not run while open")

	snap := b.Snapshot()
	assert.Equal(t, uint64(1), snap.TotalRejected)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})
	ctx := context.Background()

	require.Error(t, b.Call(ctx, failingCall))
	require.Error(t, b.Call(ctx, failingCall))
	require.NoError(t, b.Call(ctx, succeedingCall))
	require.Error(t, b.Call(ctx, failingCall))
	require.Error(t, b.Call(ctx, failingCall))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerRecoveryCycle(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		RecoveryTimeout:  100 * time.Millisecond,
	})
	ctx := context.Background()

	// Two failures open the breaker.
	require.Error(t, b.Call(ctx, failingCall))
	require.Error(t, b.Call(ctx, failingCall))
	require.Equal(t, StateOpen, b.State())

	// Still within the recovery timeout: fail fast.
	err := b.Call(ctx, succeedingCall)
	require.ErrorIs(t, err, ErrBreakerOpen)

	time.Sleep(150 * time.Millisecond)

	// First trial call is allowed through and moves the breaker half-open.
	require.NoError(t, b.Call(ctx, succeedingCall))
	assert.Equal(t, StateHalfOpen, b.State())

	// Second consecutive success closes it.
	require.NoError(t, b.Call(ctx, succeedingCall))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 3,
		RecoveryTimeout:  50 * time.Millisecond,
	})
	ctx := context.Background()

	require.Error(t, b.Call(ctx, failingCall))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(80 * time.Millisecond)

	require.Error(t, b.Call(ctx, failingCall))
	assert.Equal(t, StateOpen, b.State())

	// The fresh failure restarts the recovery window.
	err := b.Call(ctx, succeedingCall)
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestBreakerCallTimeoutCountsAsFailure(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Minute,
		CallTimeout:      20 * time.Millisecond,
	})
	ctx := context.Background()

	err := b.Call(ctx, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerReset(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Hour,
	})
	ctx := context.Background()

	require.Error(t, b.Call(ctx, failingCall))
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Call(ctx, succeedingCall))
}

func TestBreakerSnapshotCounters(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 10,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})
	ctx := context.Background()

	require.NoError(t, b.Call(ctx, succeedingCall))
	require.NoError(t, b.Call(ctx, succeedingCall))
	require.Error(t, b.Call(ctx, failingCall))

	snap := b.Snapshot()
	assert.Equal(t, "test", snap.Name)
	assert.Equal(t, "closed", snap.StateName)
	assert.Equal(t, uint64(3), snap.TotalRequests)
	assert.Equal(t, uint64(2), snap.TotalSuccesses)
	assert.Equal(t, uint64(1), snap.TotalFailures)
	assert.Equal(t, 1, snap.ConsecutiveFailures)
}

func TestBreakerDoReturnsResult(t *testing.T) {
	b := newTestBreaker(DefaultBreakerConfig())
	ctx := context.Background()

	got, err := Do(ctx, b, func(ctx context.Context) (string, error) {
		return "signed-url", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "signed-url", got)

	_, err = Do(ctx, b, func(ctx context.Context) (string, error) {
		return "", errDown
	})
	assert.ErrorIs(t, err, errDown)
}

func TestBreakerConcurrentCalls(t *testing.T) {
	b := newTestBreaker(BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		RecoveryTimeout:  time.Minute,
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				_ = b.Call(ctx, succeedingCall)
			} else {
				_ = b.Call(ctx, failingCall)
			}
		}(i)
	}
	wg.Wait()

	snap := b.Snapshot()
	assert.Equal(t, snap.TotalRequests, snap.TotalSuccesses+snap.TotalFailures+snap.TotalRejected)
}
