// Package core ties the resilience primitives together into one explicit,
// injectable registry. Each circuit breaker, resource pool, TTL cache, and
// task queue is a process-wide singleton for its dependency name, created
// once at startup and torn down once at shutdown. The registry is an
// ordinary struct rather than ambient package state so tests construct
// isolated instances per case.
package core

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/solhart/mediakit-api/internal/cache"
	"github.com/solhart/mediakit-api/internal/pool"
	"github.com/solhart/mediakit-api/internal/resilience"
	"github.com/solhart/mediakit-api/internal/task"
)

// PoolHandle is the non-generic view of a registered resource pool. Typed
// handles stay with the component that constructed the pool; the registry
// only needs diagnostics and teardown.
type PoolHandle interface {
	Name() string
	HealthCheck() pool.Health
	Close()
}

// CacheHandle is the non-generic view of a registered TTL cache.
type CacheHandle interface {
	Name() string
	Stats() cache.Stats
	Clear()
}

// Options configures a Core at construction.
type Options struct {
	// DefaultBreakerConfig applies to breakers with no named override.
	DefaultBreakerConfig resilience.BreakerConfig

	// BreakerConfigs overrides thresholds per dependency name.
	BreakerConfigs map[string]resilience.BreakerConfig

	// QueueShutdownGrace bounds how long Shutdown waits for in-flight
	// jobs before abandoning them.
	QueueShutdownGrace time.Duration
}

// Status is the read-only diagnostic snapshot for the health endpoint.
type Status struct {
	Healthy  bool                         `json:"healthy"`
	Breakers []resilience.BreakerSnapshot `json:"breakers"`
	Pools    []pool.Health                `json:"pools"`
	Caches   []cache.Stats                `json:"caches"`
	Queues   []task.Metrics               `json:"queues"`
}

// Core is the process-wide registry of resilience singletons.
type Core struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
	pools    map[string]PoolHandle
	caches   map[string]CacheHandle
	queues   map[string]*task.Queue
}

// New creates an empty registry.
func New(opts Options, logger *slog.Logger) *Core {
	if opts.DefaultBreakerConfig.FailureThreshold == 0 {
		opts.DefaultBreakerConfig = resilience.DefaultBreakerConfig()
	}
	if opts.QueueShutdownGrace <= 0 {
		opts.QueueShutdownGrace = 30 * time.Second
	}
	return &Core{
		opts:     opts,
		logger:   logger,
		breakers: make(map[string]*resilience.Breaker),
		pools:    make(map[string]PoolHandle),
		caches:   make(map[string]CacheHandle),
		queues:   make(map[string]*task.Queue),
	}
}

// Breaker returns the circuit breaker for the named dependency, creating it
// lazily with the configured thresholds. Breakers are never removed during
// the process lifetime.
func (c *Core) Breaker(name string) *resilience.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[name]; ok {
		return b
	}
	cfg, ok := c.opts.BreakerConfigs[name]
	if !ok {
		cfg = c.opts.DefaultBreakerConfig
	}
	b := resilience.NewBreaker(name, cfg)
	c.breakers[name] = b
	c.logger.Debug("circuit breaker created",
		"breaker", name,
		"failure_threshold", cfg.FailureThreshold,
		"recovery_timeout", cfg.RecoveryTimeout)
	return b
}

// ResetBreaker forces the named breaker back to closed for operational
// recovery. It reports whether the breaker exists.
func (c *Core) ResetBreaker(name string) bool {
	c.mu.Lock()
	b, ok := c.breakers[name]
	c.mu.Unlock()
	if ok {
		b.Reset()
		c.logger.Info("circuit breaker reset", "breaker", name)
	}
	return ok
}

// RegisterPool adds a pool to the registry. The last registration for a
// name wins; pools are registered once at startup.
func (c *Core) RegisterPool(p PoolHandle) {
	c.mu.Lock()
	c.pools[p.Name()] = p
	c.mu.Unlock()
}

// Pool returns the registered pool handle, or nil when none exists.
func (c *Core) Pool(name string) PoolHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pools[name]
}

// RegisterCache adds a cache to the registry.
func (c *Core) RegisterCache(h CacheHandle) {
	c.mu.Lock()
	c.caches[h.Name()] = h
	c.mu.Unlock()
}

// Cache returns the registered cache handle, or nil when none exists.
func (c *Core) Cache(name string) CacheHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caches[name]
}

// RegisterQueue adds a task queue to the registry.
func (c *Core) RegisterQueue(q *task.Queue) {
	c.mu.Lock()
	c.queues[q.Name()] = q
	c.mu.Unlock()
}

// Queue returns the registered queue, or nil when none exists.
func (c *Core) Queue(name string) *task.Queue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queues[name]
}

// Status enumerates every registered component with its current snapshot.
// Healthy is false when any breaker is open or any pool reports unhealthy.
func (c *Core) Status() Status {
	c.mu.Lock()
	breakers := make([]*resilience.Breaker, 0, len(c.breakers))
	for _, b := range c.breakers {
		breakers = append(breakers, b)
	}
	pools := make([]PoolHandle, 0, len(c.pools))
	for _, p := range c.pools {
		pools = append(pools, p)
	}
	caches := make([]CacheHandle, 0, len(c.caches))
	for _, h := range c.caches {
		caches = append(caches, h)
	}
	queues := make([]*task.Queue, 0, len(c.queues))
	for _, q := range c.queues {
		queues = append(queues, q)
	}
	c.mu.Unlock()

	status := Status{Healthy: true}

	for _, b := range breakers {
		snap := b.Snapshot()
		if snap.State == resilience.StateOpen {
			status.Healthy = false
		}
		status.Breakers = append(status.Breakers, snap)
	}
	for _, p := range pools {
		health := p.HealthCheck()
		if !health.Healthy {
			status.Healthy = false
		}
		status.Pools = append(status.Pools, health)
	}
	for _, h := range caches {
		status.Caches = append(status.Caches, h.Stats())
	}
	for _, q := range queues {
		status.Queues = append(status.Queues, q.Metrics())
	}

	// Stable ordering keeps the health endpoint's output diffable.
	sort.Slice(status.Breakers, func(i, j int) bool { return status.Breakers[i].Name < status.Breakers[j].Name })
	sort.Slice(status.Pools, func(i, j int) bool { return status.Pools[i].Name < status.Pools[j].Name })
	sort.Slice(status.Caches, func(i, j int) bool { return status.Caches[i].Name < status.Caches[j].Name })
	sort.Slice(status.Queues, func(i, j int) bool { return status.Queues[i].Name < status.Queues[j].Name })

	return status
}

// Shutdown tears down every registered queue and pool: queues first so
// draining workers can still use the pools for their I/O.
func (c *Core) Shutdown(ctx context.Context) {
	c.mu.Lock()
	queues := make([]*task.Queue, 0, len(c.queues))
	for _, q := range c.queues {
		queues = append(queues, q)
	}
	pools := make([]PoolHandle, 0, len(c.pools))
	for _, p := range c.pools {
		pools = append(pools, p)
	}
	c.mu.Unlock()

	for _, q := range queues {
		if abandoned := q.Shutdown(c.opts.QueueShutdownGrace); abandoned > 0 {
			c.logger.Warn("queue abandoned jobs at shutdown",
				"queue", q.Name(),
				"abandoned", abandoned)
		}
	}
	for _, p := range pools {
		p.Close()
	}
	c.logger.Info("core registry shut down",
		"queues", len(queues),
		"pools", len(pools))
}
