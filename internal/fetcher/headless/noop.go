package headless

import (
	"context"
	"errors"

	"github.com/aotydata/album-crawler/internal/crawler"
)

// Noop implements crawler.Transport but always fails, for builds or
// configurations where no browser is available.
type Noop struct{}

// NewNoop creates a new Noop transport.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch returns an error since headless browsing is not configured.
func (Noop) Fetch(context.Context, string) (crawler.Page, error) {
	return crawler.Page{}, errors.New("headless transport not configured")
}
