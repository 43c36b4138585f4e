package crawler

import (
	"context"
	"time"
)

// Transport fetches a URL and returns the raw response. Two implementations
// exist: the plain HTTP transport and the headless fallback capable of
// satisfying requests the primary cannot complete due to active blocking.
type Transport interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Fetcher is the classified fetch abstraction consumed by the session
// controller. Pipeline is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) FetchResult
}

// BlockDetector decides whether a response is an anti-automation challenge
// rather than real content. The signatures involved are fragile and
// site-specific, so all knowledge of them stays behind this interface.
type BlockDetector interface {
	Blocked(statusCode int, body []byte) bool
}

// RateController is the sole gate on request timing. No component may issue a
// network call without passing through Wait first.
type RateController interface {
	// Wait blocks until the minimum spacing since the last request to host
	// has elapsed, then records the new last-request time.
	Wait(ctx context.Context, host string) error
	// Escalate grows the host's base delay after a blocking signal.
	Escalate(host string)
	// Relax gradually restores the base delay after consecutive successes.
	Relax(host string)
}

// Sink receives extracted records. Durability and format are the sink's own
// responsibility.
type Sink interface {
	Emit(ctx context.Context, rec Record) error
}

// Handler turns a fetched body into follow-on tasks and at most one record.
// Handlers are pure: no I/O, no retry logic.
type Handler interface {
	Handle(task CrawlTask, body []byte) (RouteResult, error)
}

// RetryPolicy decides whether and when a failed task runs again.
type RetryPolicy interface {
	ShouldRetry(status FetchStatus, attempt int) bool
	Backoff(attempt int) time.Duration
}

// CheckpointStore persists session snapshots for crash recovery and resume.
type CheckpointStore interface {
	Save(ctx context.Context, cp Checkpoint) error
	// Load returns the prior checkpoint, or ok=false when none exists.
	Load(ctx context.Context) (cp Checkpoint, ok bool, err error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}
