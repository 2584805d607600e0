package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayWithoutJitter(t *testing.T) {
	spec := BackoffSpec{
		MaxAttempts:  4,
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 16 * time.Second}, // capped
		{10, 16 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, spec.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDelayNeverExceedsMax(t *testing.T) {
	spec := BackoffSpec{
		MaxAttempts:    5,
		InitialDelay:   2 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     3.0,
		JitterFraction: 1.0,
	}

	for attempt := 0; attempt < 50; attempt++ {
		d := spec.Delay(attempt)
		assert.LessOrEqual(t, d, spec.MaxDelay)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func TestDelayJitterStaysInBounds(t *testing.T) {
	spec := BackoffSpec{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       time.Minute,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}

	for i := 0; i < 200; i++ {
		d := spec.Delay(0)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestDelayNegativeAttemptTreatedAsZero(t *testing.T) {
	spec := BackoffSpec{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 1*time.Second, spec.Delay(-1))
}

func TestPresets(t *testing.T) {
	def := DefaultBackoff()
	assert.Equal(t, 3, def.MaxAttempts)
	assert.Equal(t, 1*time.Second, def.InitialDelay)
	assert.Equal(t, 16*time.Second, def.MaxDelay)
	assert.Equal(t, 2.0, def.Multiplier)
	assert.Greater(t, def.JitterFraction, 0.0)

	agg := AggressiveBackoff()
	assert.Equal(t, 5, agg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, agg.InitialDelay)
	assert.Equal(t, 8*time.Second, agg.MaxDelay)
	assert.Equal(t, 1.5, agg.Multiplier)
	assert.Greater(t, agg.JitterFraction, 0.0)

	patient := PatientBackoff()
	assert.Equal(t, 4, patient.MaxAttempts)
	assert.Equal(t, 2*time.Second, patient.InitialDelay)
	assert.Equal(t, 60*time.Second, patient.MaxDelay)
	assert.Equal(t, 2.5, patient.Multiplier)
	assert.Greater(t, patient.JitterFraction, 0.0)
}
