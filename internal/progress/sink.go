package progress

import "context"

// Sink consumes batches of progress events. Implementations must tolerate
// being called from a single background goroutine and should never block for
// long; the hub applies a per-flush timeout.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
}
