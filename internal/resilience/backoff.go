package resilience

import (
	"math"
	"math/rand"
	"time"
)

// BackoffSpec describes an exponential backoff schedule. It is an immutable
// value type; use one of the preset constructors or build one directly.
type BackoffSpec struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Must be at least 1.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay for any attempt.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor between attempts.
	Multiplier float64

	// JitterFraction perturbs each delay by a uniform random value in
	// ±JitterFraction of the computed delay. Must be in [0, 1].
	// Jitter prevents synchronized retry storms across concurrent callers.
	JitterFraction float64
}

// DefaultBackoff returns the balanced preset: 3 attempts, 1s initial delay,
// 16s cap, doubling between attempts.
func DefaultBackoff() BackoffSpec {
	return BackoffSpec{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       16 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

// AggressiveBackoff returns the fast-recovery preset: 5 attempts, 500ms
// initial delay, 8s cap, gentle growth. Suited to cheap idempotent calls
// where quick recovery matters more than load shedding.
func AggressiveBackoff() BackoffSpec {
	return BackoffSpec{
		MaxAttempts:    5,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		Multiplier:     1.5,
		JitterFraction: 0.2,
	}
}

// PatientBackoff returns the preset for large or slow transfers: 4 attempts,
// 2s initial delay, 60s cap, steep growth.
func PatientBackoff() BackoffSpec {
	return BackoffSpec{
		MaxAttempts:    4,
		InitialDelay:   2 * time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2.5,
		JitterFraction: 0.2,
	}
}

// Delay returns the wait before retrying after the given attempt (0-indexed):
// min(InitialDelay * Multiplier^attempt, MaxDelay), perturbed by
// ±JitterFraction and clamped to [0, MaxDelay].
func (s BackoffSpec) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := float64(s.InitialDelay) * math.Pow(s.Multiplier, float64(attempt))
	if d > float64(s.MaxDelay) {
		d = float64(s.MaxDelay)
	}

	if s.JitterFraction > 0 {
		// Uniform draw in [-JitterFraction, +JitterFraction].
		d *= 1 + s.JitterFraction*(2*rand.Float64()-1)
	}

	if d < 0 {
		return 0
	}
	if d > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(d)
}
