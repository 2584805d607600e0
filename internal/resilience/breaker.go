package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/solhart/mediakit-api/internal/platform/metrics"
)

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	StateClosed   BreakerState = iota // Normal operation; calls pass through.
	StateOpen                         // Failing; calls are rejected immediately.
	StateHalfOpen                     // Probing; trial calls test recovery.
)

// String returns a human-readable state name.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls the thresholds for state transitions.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// a closed breaker.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes that closes
	// a half-open breaker.
	SuccessThreshold int

	// RecoveryTimeout is how long an open breaker rejects calls before
	// allowing a trial call through.
	RecoveryTimeout time.Duration

	// CallTimeout bounds each guarded call. A timeout counts as a failure.
	// Zero disables the per-call timeout.
	CallTimeout time.Duration
}

// DefaultBreakerConfig returns the documented defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		RecoveryTimeout:  60 * time.Second,
		CallTimeout:      30 * time.Second,
	}
}

// BreakerSnapshot is a point-in-time copy of a breaker's state and counters.
type BreakerSnapshot struct {
	Name                 string       `json:"name"`
	State                BreakerState `json:"-"`
	StateName            string       `json:"state"`
	ConsecutiveFailures  int          `json:"consecutive_failures"`
	ConsecutiveSuccesses int          `json:"consecutive_successes"`
	OpenedAt             time.Time    `json:"opened_at"`
	TotalRequests        uint64       `json:"total_requests"`
	TotalFailures        uint64       `json:"total_failures"`
	TotalSuccesses       uint64       `json:"total_successes"`
	TotalRejected        uint64       `json:"total_rejected"`
}

// Breaker is a per-dependency circuit breaker. All state mutation is
// serialized through a single mutex; the mutex is never held while the
// guarded function executes, so concurrent callers through an
// open-but-eligible breaker may race to become the half-open trial call.
// That race is bounded by the thresholds and is not a correctness hazard.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu                   sync.Mutex
	state                BreakerState
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	totalRequests        uint64
	totalFailures        uint64
	totalSuccesses       uint64
	totalRejected        uint64

	// now is swappable for tests.
	now func() time.Time
}

// NewBreaker creates a closed breaker with the given name and config.
// Zero config fields fall back to the defaults.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}

	b := &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
	metrics.BreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

// Name returns the breaker's registry name.
func (b *Breaker) Name() string {
	return b.name
}

// Call invokes fn if the breaker is closed or eligible for a half-open
// trial; otherwise it returns an ErrBreakerOpen-wrapped error without
// invoking fn. A per-call timeout is applied through the context; fn must
// honor context cancellation for the timeout to take effect.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	callCtx := ctx
	if b.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// Do is the result-carrying variant of Call.
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := b.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = fn(ctx)
		return callErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// allow checks whether a call may proceed, performing the OPEN -> HALF_OPEN
// transition when the recovery timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.RecoveryTimeout {
			b.totalRejected++
			metrics.BreakerRejectionsTotal.WithLabelValues(b.name).Inc()
			return fmt.Errorf("%w: breaker %q rejecting calls until %s",
				ErrBreakerOpen, b.name, b.openedAt.Add(b.cfg.RecoveryTimeout).Format(time.RFC3339))
		}
		b.transition(StateHalfOpen)
	}

	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSuccesses++
	b.consecutiveSuccesses++
	b.consecutiveFailures = 0

	if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
		b.transition(StateClosed)
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalFailures++
	b.consecutiveFailures++
	b.consecutiveSuccesses = 0

	switch b.state {
	case StateHalfOpen:
		// Any failure during the trial window reopens the breaker.
		b.openedAt = b.now()
		b.transition(StateOpen)
	case StateClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
	}
}

// transition must be called with b.mu held.
func (b *Breaker) transition(next BreakerState) {
	if b.state == next {
		return
	}
	b.state = next
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	metrics.BreakerState.WithLabelValues(b.name).Set(float64(next))
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed for operational recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openedAt = time.Time{}
	b.state = StateClosed
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	metrics.BreakerState.WithLabelValues(b.name).Set(float64(StateClosed))
}

// Snapshot returns a copy of the breaker's state and counters.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerSnapshot{
		Name:                 b.name,
		State:                b.state,
		StateName:            b.state.String(),
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		OpenedAt:             b.openedAt,
		TotalRequests:        b.totalRequests,
		TotalFailures:        b.totalFailures,
		TotalSuccesses:       b.totalSuccesses,
		TotalRejected:        b.totalRejected,
	}
}
