package crawler

import (
	"errors"
	"fmt"
)

// ErrNoHandler indicates a page type with no registered handler.
var ErrNoHandler = errors.New("no handler registered for page type")

// legalNext constrains the traversal state machine: a handler for one page
// type may only discover tasks of its legal successor types.
var legalNext = map[PageType]map[PageType]bool{
	PageGenreIndex:  {PageRatings: true},
	PageRatings:     {PageRatings: true, PageAlbumDetail: true},
	PageAlbumDetail: {},
}

// Router classifies fetched pages by task page type and dispatches them to
// the registered extraction and link-discovery handler. It performs no I/O
// and no retry logic, keeping traversal policy testable apart from fetch
// reliability.
type Router struct {
	handlers map[PageType]Handler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[PageType]Handler)}
}

// Register binds a handler to a page type, replacing any prior binding.
func (r *Router) Register(pt PageType, h Handler) {
	r.handlers[pt] = h
}

// Dispatch runs the handler for the task's page type and validates that
// every discovered task is a legal successor.
func (r *Router) Dispatch(task CrawlTask, body []byte) (RouteResult, error) {
	h, ok := r.handlers[task.Type]
	if !ok {
		return RouteResult{}, fmt.Errorf("%w: %s", ErrNoHandler, task.Type)
	}
	out, err := h.Handle(task, body)
	if err != nil {
		return RouteResult{}, err
	}
	allowed := legalNext[task.Type]
	for _, next := range out.Tasks {
		if !allowed[next.Type] {
			return RouteResult{}, fmt.Errorf("illegal transition %s -> %s for %s", task.Type, next.Type, next.URL)
		}
	}
	return out, nil
}
