package crawler

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// ExponentialRetryPolicy implements RetryPolicy with jittered exponential
// backoff. Delays for successive attempts fall in disjoint, strictly
// increasing ranges until the cap is reached.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds a policy. Non-positive arguments fall back
// to defaults of 3 attempts, 3s base, and 60s cap.
func NewExponentialRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *ExponentialRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 3 * time.Second
	}
	if maxDelay < baseDelay {
		maxDelay = 60 * time.Second
	}
	return &ExponentialRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// ShouldRetry reports whether a task with the given failure kind and attempt
// count gets another try. Only transient and blocked outcomes are retryable.
func (p *ExponentialRetryPolicy) ShouldRetry(status FetchStatus, attempt int) bool {
	if status != StatusTransient && status != StatusBlocked {
		return false
	}
	return attempt < p.maxAttempts
}

// Backoff returns the wait before attempt+1. The result lies in
// [base*2^attempt / 2, base*2^attempt) while the exponential stays under the
// ceiling, then exactly the ceiling. Jittering at the ceiling would let a
// later attempt draw a shorter delay than an earlier one; plateauing keeps
// delays non-decreasing across a task's whole retry sequence.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay >= float64(p.maxDelay) {
		return p.maxDelay
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
