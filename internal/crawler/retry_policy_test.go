package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetryOnlyRetryableStatuses(t *testing.T) {
	p := NewExponentialRetryPolicy(3, time.Second, time.Minute)

	assert.True(t, p.ShouldRetry(StatusTransient, 0))
	assert.True(t, p.ShouldRetry(StatusBlocked, 2))
	assert.False(t, p.ShouldRetry(StatusPermanent, 0))
	assert.False(t, p.ShouldRetry(StatusSuccess, 0))
}

func TestShouldRetryExhaustsAtMaxAttempts(t *testing.T) {
	p := NewExponentialRetryPolicy(3, time.Second, time.Minute)

	assert.True(t, p.ShouldRetry(StatusTransient, 2))
	assert.False(t, p.ShouldRetry(StatusTransient, 3))
	assert.False(t, p.ShouldRetry(StatusTransient, 10))
}

func TestBackoffWithinJitteredRange(t *testing.T) {
	base := time.Second
	p := NewExponentialRetryPolicy(5, base, time.Minute)

	for attempt := 0; attempt < 4; attempt++ {
		full := base * time.Duration(1<<attempt)
		for i := 0; i < 20; i++ {
			d := p.Backoff(attempt)
			assert.GreaterOrEqual(t, d, full/2, "attempt %d", attempt)
			assert.Less(t, d, full, "attempt %d", attempt)
		}
	}
}

func TestBackoffMonotonicAcrossAttempts(t *testing.T) {
	// Ranges for successive attempts are disjoint below the cap, so any draw
	// for attempt n+1 exceeds any draw for attempt n.
	p := NewExponentialRetryPolicy(5, time.Second, time.Hour)
	for i := 0; i < 20; i++ {
		a := p.Backoff(0)
		b := p.Backoff(1)
		c := p.Backoff(2)
		assert.Less(t, a, b)
		assert.Less(t, b, c)
	}
}

func TestBackoffMonotonicOnceCapBinds(t *testing.T) {
	// With a low ceiling the exponential saturates early; delays must still
	// never decrease across consecutive attempts of one retry sequence.
	p := NewExponentialRetryPolicy(10, time.Second, 4*time.Second)
	for i := 0; i < 50; i++ {
		prev := p.Backoff(0)
		for attempt := 1; attempt < 10; attempt++ {
			d := p.Backoff(attempt)
			assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
			prev = d
		}
	}
}

func TestBackoffPlateausAtCeiling(t *testing.T) {
	p := NewExponentialRetryPolicy(10, time.Second, 4*time.Second)
	// base*2^2 = 4s reaches the ceiling exactly; from there every draw is the
	// ceiling itself, with no jitter beneath it.
	for attempt := 2; attempt < 10; attempt++ {
		assert.Equal(t, 4*time.Second, p.Backoff(attempt), "attempt %d", attempt)
	}
	assert.Less(t, p.Backoff(1), 4*time.Second)
}

func TestPolicyDefaults(t *testing.T) {
	p := NewExponentialRetryPolicy(0, 0, 0)
	assert.True(t, p.ShouldRetry(StatusTransient, 2))
	assert.False(t, p.ShouldRetry(StatusTransient, 3))
	d := p.Backoff(0)
	assert.GreaterOrEqual(t, d, 1500*time.Millisecond)
	assert.Less(t, d, 3*time.Second)
}
