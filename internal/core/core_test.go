package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhart/mediakit-api/internal/cache"
	"github.com/solhart/mediakit-api/internal/pool"
	"github.com/solhart/mediakit-api/internal/resilience"
	"github.com/solhart/mediakit-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBreakerLookupIsSingleton(t *testing.T) {
	c := New(Options{}, testLogger())

	b1 := c.Breaker("postgres")
	b2 := c.Breaker("postgres")
	other := c.Breaker("s3")

	assert.Same(t, b1, b2)
	assert.NotSame(t, b1, other)
}

func TestBreakerNamedOverride(t *testing.T) {
	c := New(Options{
		BreakerConfigs: map[string]resilience.BreakerConfig{
			"s3": {FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Hour},
		},
	}, testLogger())

	b := c.Breaker("s3")
	require.Error(t, b.Call(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}))
	assert.Equal(t, resilience.StateOpen, b.State())
}

func TestResetBreaker(t *testing.T) {
	c := New(Options{
		BreakerConfigs: map[string]resilience.BreakerConfig{
			"s3": {FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Hour},
		},
	}, testLogger())

	b := c.Breaker("s3")
	_ = b.Call(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	require.Equal(t, resilience.StateOpen, b.State())

	assert.True(t, c.ResetBreaker("s3"))
	assert.Equal(t, resilience.StateClosed, b.State())
	assert.False(t, c.ResetBreaker("unknown"))
}

func TestStatusAggregatesComponents(t *testing.T) {
	c := New(Options{
		DefaultBreakerConfig: resilience.BreakerConfig{
			FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Hour,
		},
	}, testLogger())

	p, err := pool.New("postgres", pool.Config{MinSize: 1, MaxSize: 2, ValidationWindow: time.Minute},
		func(ctx context.Context) (int, error) { return 1, nil }, nil, nil, testLogger())
	require.NoError(t, err)
	c.RegisterPool(p)

	c.RegisterCache(cache.New[string]("signed-urls"))

	q, err := task.New("derived-assets", task.Config{Workers: 1, Capacity: 5},
		map[string]task.Handler{"noop": func(ctx context.Context, job task.Job) error { return nil }},
		testLogger())
	require.NoError(t, err)
	c.RegisterQueue(q)

	c.Breaker("postgres")

	status := c.Status()
	assert.True(t, status.Healthy)
	require.Len(t, status.Breakers, 1)
	require.Len(t, status.Pools, 1)
	require.Len(t, status.Caches, 1)
	require.Len(t, status.Queues, 1)
	assert.Equal(t, "postgres", status.Breakers[0].Name)
	assert.Equal(t, "postgres", status.Pools[0].Name)
	assert.Equal(t, "signed-urls", status.Caches[0].Name)
	assert.Equal(t, "derived-assets", status.Queues[0].Name)

	// An open breaker flips the aggregate to unhealthy.
	_ = c.Breaker("postgres").Call(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	})
	assert.False(t, c.Status().Healthy)
}

func TestRegistryLookups(t *testing.T) {
	c := New(Options{}, testLogger())

	assert.Nil(t, c.Pool("missing"))
	assert.Nil(t, c.Cache("missing"))
	assert.Nil(t, c.Queue("missing"))

	h := cache.New[int]("counts")
	c.RegisterCache(h)
	assert.Equal(t, "counts", c.Cache("counts").Name())
}

func TestShutdownClosesQueuesThenPools(t *testing.T) {
	c := New(Options{QueueShutdownGrace: time.Second}, testLogger())

	p, err := pool.New("postgres", pool.Config{MinSize: 0, MaxSize: 2, ValidationWindow: time.Minute},
		func(ctx context.Context) (int, error) { return 1, nil }, nil, nil, testLogger())
	require.NoError(t, err)
	c.RegisterPool(p)

	q, err := task.New("derived-assets", task.Config{Workers: 1, Capacity: 5},
		map[string]task.Handler{"noop": func(ctx context.Context, job task.Job) error { return nil }},
		testLogger())
	require.NoError(t, err)
	q.Start()
	c.RegisterQueue(q)

	c.Shutdown(context.Background())

	_, err = q.Enqueue("noop", nil)
	assert.ErrorIs(t, err, task.ErrQueueClosed)
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, pool.ErrPoolClosed)
}
