package sink

import (
	"context"

	"github.com/aotydata/album-crawler/internal/crawler"
)

// Noop discards records; useful for dry runs exercising only the traversal.
type Noop struct{}

// NewNoop returns a sink that accepts and drops everything.
func NewNoop() *Noop {
	return &Noop{}
}

// Emit discards the record.
func (Noop) Emit(context.Context, crawler.Record) error {
	return nil
}
