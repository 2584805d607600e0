// Package pool provides a bounded pool of expensive, reusable connections to
// one external dependency. Acquisition is retried with a conservative backoff
// so a brief network blip does not surface to callers, and validation results
// are cached per resource to avoid probing on every checkout.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/solhart/mediakit-api/internal/platform/metrics"
	"github.com/solhart/mediakit-api/internal/resilience"
)

// Common errors returned by the pool.
var (
	// ErrPoolExhausted is returned when no resource became available
	// within the acquisition timeout.
	ErrPoolExhausted = errors.New("resource pool exhausted")

	// ErrPoolClosed is returned by Acquire after the pool has shut down.
	ErrPoolClosed = errors.New("resource pool is closed")
)

// Factory creates one live connection to the dependency.
type Factory[T any] func(ctx context.Context) (T, error)

// ValidateFunc is a cheap liveness probe for a pooled connection.
type ValidateFunc[T any] func(ctx context.Context, conn T) bool

// CloseFunc releases a connection's underlying transport.
type CloseFunc[T any] func(conn T)

// Config controls pool sizing and validation behavior.
type Config struct {
	// MinSize resources are created proactively at pool start and the pool
	// replenishes lazily toward this floor after destructions.
	MinSize int

	// MaxSize bounds the number of live resources (idle + checked out).
	MaxSize int

	// AcquireTimeout bounds how long Acquire blocks waiting for a free
	// slot. Zero means the caller's context alone bounds the wait.
	AcquireTimeout time.Duration

	// ValidationWindow is how long a validation result stays fresh on a
	// resource before the next checkout probes again.
	ValidationWindow time.Duration

	// MaxIdleAge destroys resources idle longer than this. Zero disables
	// the idle age check.
	MaxIdleAge time.Duration

	// CreateBackoff wraps resource creation in a bounded retry so a
	// transient creation failure is absorbed before surfacing.
	CreateBackoff resilience.BackoffSpec
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MinSize:          2,
		MaxSize:          10,
		AcquireTimeout:   5 * time.Second,
		ValidationWindow: 30 * time.Second,
		CreateBackoff:    resilience.DefaultBackoff(),
	}
}

// Stats holds the pool's cumulative counters.
type Stats struct {
	Created   uint64 `json:"created"`
	Destroyed uint64 `json:"destroyed"`
	Acquired  uint64 `json:"acquired"`
	Released  uint64 `json:"released"`
	Timeouts  uint64 `json:"timeouts"`
}

// Health is the aggregate diagnostic snapshot. It is always obtainable;
// HealthCheck never fails.
type Health struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Active  int    `json:"active"`
	Idle    int    `json:"idle"`
	Stats   Stats  `json:"stats"`
}

// Resource wraps one live connection. The pool owns it while idle; ownership
// transfers to the caller between Acquire and Release.
type Resource[T any] struct {
	conn            T
	lastValidatedAt time.Time
	idleSince       time.Time
}

// Conn returns the underlying connection.
func (r *Resource[T]) Conn() T {
	return r.conn
}

// Pool manages [MinSize, MaxSize] live connections to one dependency.
type Pool[T any] struct {
	name     string
	cfg      Config
	factory  Factory[T]
	validate ValidateFunc[T]
	closeFn  CloseFunc[T]
	logger   *slog.Logger

	// slots is a semaphore bounding checked-out resources; it holds
	// MaxSize permits. A permit is consumed for the lifetime of a
	// checkout and returned on release.
	slots chan struct{}

	// done is closed on Close to fail blocked acquirers fast.
	done chan struct{}

	mu     sync.Mutex
	idle   []*Resource[T]
	open   int // idle + checked out; never exceeds cfg.MaxSize
	closed bool
	stats  Stats
}

// New creates a pool and pre-warms MinSize connections. A pre-warm failure
// is logged but not fatal; the pool fills lazily on demand.
func New[T any](
	name string,
	cfg Config,
	factory Factory[T],
	validate ValidateFunc[T],
	closeFn CloseFunc[T],
	logger *slog.Logger,
) (*Pool[T], error) {
	if factory == nil {
		return nil, errors.New("pool factory is required")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	if cfg.MinSize < 0 {
		cfg.MinSize = 0
	}
	if cfg.MinSize > cfg.MaxSize {
		return nil, fmt.Errorf("pool %q: min size %d exceeds max size %d", name, cfg.MinSize, cfg.MaxSize)
	}
	if cfg.CreateBackoff.MaxAttempts < 1 {
		cfg.CreateBackoff = resilience.DefaultBackoff()
	}

	p := &Pool[T]{
		name:     name,
		cfg:      cfg,
		factory:  factory,
		validate: validate,
		closeFn:  closeFn,
		logger:   logger.With("pool", name),
		slots:    make(chan struct{}, cfg.MaxSize),
		done:     make(chan struct{}),
	}
	for i := 0; i < cfg.MaxSize; i++ {
		p.slots <- struct{}{}
	}

	ctx := context.Background()
	for i := 0; i < cfg.MinSize; i++ {
		res, err := p.create(ctx)
		if err != nil {
			p.logger.Warn("pre-warm connection failed, pool will fill lazily",
				"error", err,
				"warmed", i,
				"min_size", cfg.MinSize)
			break
		}
		p.mu.Lock()
		p.idle = append(p.idle, res)
		p.mu.Unlock()
	}
	p.publishGauges()

	return p, nil
}

// Name returns the pool's registry name.
func (p *Pool[T]) Name() string {
	return p.name
}

// Acquire returns an idle validated resource, creating a new one when none
// is idle and the pool is below MaxSize, and otherwise blocking until a
// resource is released or the timeout elapses. There is no FIFO fairness
// between concurrent callers, only eventual service.
func (p *Pool[T]) Acquire(ctx context.Context) (*Resource[T], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrPoolClosed, p.name)
	}
	p.mu.Unlock()

	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	select {
	case <-p.slots:
	case <-p.done:
		return nil, fmt.Errorf("%w: %q", ErrPoolClosed, p.name)
	case <-ctx.Done():
		p.mu.Lock()
		p.stats.Timeouts++
		p.mu.Unlock()
		metrics.PoolAcquireTimeoutsTotal.WithLabelValues(p.name).Inc()
		return nil, fmt.Errorf("%w: %q: %v", ErrPoolExhausted, p.name, ctx.Err())
	}

	res, err := p.checkout(ctx)
	if err != nil {
		p.slots <- struct{}{}
		return nil, err
	}

	p.mu.Lock()
	p.stats.Acquired++
	p.mu.Unlock()
	p.publishGauges()
	return res, nil
}

// checkout holds a slot permit. It prefers a validated idle resource and
// falls back to creating a fresh one.
func (p *Pool[T]) checkout(ctx context.Context) (*Resource[T], error) {
	now := time.Now()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", ErrPoolClosed, p.name)
		}
		if len(p.idle) == 0 {
			p.mu.Unlock()
			break
		}
		res := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		p.mu.Unlock()

		if p.cfg.MaxIdleAge > 0 && now.Sub(res.idleSince) > p.cfg.MaxIdleAge {
			p.destroy(res)
			continue
		}
		if p.validate != nil && now.Sub(res.lastValidatedAt) > p.cfg.ValidationWindow {
			if !p.validate(ctx, res.conn) {
				p.destroy(res)
				continue
			}
			res.lastValidatedAt = now
		}
		return res, nil
	}

	return p.create(ctx)
}

// create dials a new connection with the configured retry policy and counts
// it against the pool's open total.
func (p *Pool[T]) create(ctx context.Context) (*Resource[T], error) {
	conn, err := resilience.RetryResult(ctx, p.cfg.CreateBackoff, resilience.RetryTransient, p.factory)
	if err != nil {
		return nil, fmt.Errorf("failed to create pooled resource for %q: %w", p.name, err)
	}

	now := time.Now()
	p.mu.Lock()
	p.open++
	p.stats.Created++
	p.mu.Unlock()

	return &Resource[T]{conn: conn, lastValidatedAt: now, idleSince: now}, nil
}

// Release returns a resource to the idle set when valid, or destroys it.
// Callers must release on every exit path of their critical section,
// typically via defer.
func (p *Pool[T]) Release(res *Resource[T], valid bool) {
	if res == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.stats.Released++
	p.mu.Unlock()

	if !valid || closed {
		p.destroy(res)
	} else {
		res.idleSince = time.Now()
		p.mu.Lock()
		p.idle = append(p.idle, res)
		p.mu.Unlock()
	}

	p.slots <- struct{}{}
	p.publishGauges()
}

func (p *Pool[T]) destroy(res *Resource[T]) {
	if p.closeFn != nil {
		p.closeFn(res.conn)
	}
	p.mu.Lock()
	p.open--
	p.stats.Destroyed++
	p.mu.Unlock()
}

// HealthCheck returns the pool's diagnostic snapshot. It never fails.
func (p *Pool[T]) HealthCheck() Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Health{
		Name:    p.name,
		Healthy: !p.closed,
		Active:  p.open - len(p.idle),
		Idle:    len(p.idle),
		Stats:   p.stats,
	}
}

// Close drains and closes all idle resources and rejects further Acquire
// calls. Checked-out resources are destroyed as they are released.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	drained := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, res := range drained {
		p.destroy(res)
	}
	p.publishGauges()
	p.logger.Info("pool closed", "destroyed_idle", len(drained))
}

func (p *Pool[T]) publishGauges() {
	p.mu.Lock()
	active := p.open - len(p.idle)
	idle := len(p.idle)
	p.mu.Unlock()
	metrics.PoolResources.WithLabelValues(p.name, "active").Set(float64(active))
	metrics.PoolResources.WithLabelValues(p.name, "idle").Set(float64(idle))
}
