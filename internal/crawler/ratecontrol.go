package crawler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Jitter band applied to every inter-request interval so the crawler never
// produces a detectable periodic signature.
const (
	jitterLow  = 0.5
	jitterHigh = 1.5
)

// HostRateController enforces a minimum inter-request interval per host with
// uniform jitter, escalates the delay on blocking signals, and relaxes it
// back toward the base after a run of consecutive successes.
type HostRateController struct {
	base       time.Duration
	ceiling    time.Duration
	relaxAfter int
	clock      Clock

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	delay  time.Duration
	last   time.Time
	streak int
}

// NewHostRateController builds a controller with the given base delay,
// escalation ceiling, and success streak length required before relaxing.
func NewHostRateController(base, ceiling time.Duration, relaxAfter int, clock Clock) *HostRateController {
	if base <= 0 {
		base = 3 * time.Second
	}
	if ceiling < base {
		ceiling = base
	}
	if relaxAfter <= 0 {
		relaxAfter = 5
	}
	return &HostRateController{
		base:       base,
		ceiling:    ceiling,
		relaxAfter: relaxAfter,
		clock:      clock,
		hosts:      make(map[string]*hostState),
	}
}

// Wait blocks until the jittered minimum spacing since the last request to
// host has elapsed, then records the new last-request time. It returns early
// with the context error on cancellation without recording a request.
func (c *HostRateController) Wait(ctx context.Context, host string) error {
	now := c.clock.Now()

	c.mu.Lock()
	st := c.state(host)
	spacing := time.Duration(float64(st.delay) * (jitterLow + rand.Float64()*(jitterHigh-jitterLow)))
	var sleep time.Duration
	if !st.last.IsZero() {
		if rest := st.last.Add(spacing).Sub(now); rest > 0 {
			sleep = rest
		}
	}
	c.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate wait canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	c.mu.Lock()
	c.state(host).last = c.clock.Now()
	c.mu.Unlock()
	return nil
}

// Escalate doubles the host's current delay, bounded by the ceiling, and
// resets its success streak.
func (c *HostRateController) Escalate(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(host)
	st.delay *= 2
	if st.delay > c.ceiling {
		st.delay = c.ceiling
	}
	st.streak = 0
	RateEscalations.Inc()
}

// Relax notes a success; after relaxAfter consecutive successes the host's
// delay is halved, bounded below by the base delay.
func (c *HostRateController) Relax(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(host)
	st.streak++
	if st.streak < c.relaxAfter {
		return
	}
	st.streak = 0
	st.delay /= 2
	if st.delay < c.base {
		st.delay = c.base
	}
}

// currentDelay is exposed for tests.
func (c *HostRateController) currentDelay(host string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state(host).delay
}

func (c *HostRateController) state(host string) *hostState {
	st, ok := c.hosts[host]
	if !ok {
		st = &hostState{delay: c.base}
		c.hosts[host] = st
	}
	return st
}
