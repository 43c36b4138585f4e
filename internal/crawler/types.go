// Package crawler implements the crawl orchestration engine: the frontier
// scheduler, the page router, the fetch pipeline with its blocked-request
// fallback, the dedup/resume store, and the per-host rate controller.
package crawler

import (
	"fmt"
	"net/http"
)

// PageType identifies which router branch handles a fetched page and which
// follow-on tasks are legal.
type PageType string

// Page types in traversal order.
const (
	PageGenreIndex  PageType = "genre_index"
	PageRatings     PageType = "ratings"
	PageAlbumDetail PageType = "album_detail"
)

// TaskContext carries the traversal state needed to reconstruct downstream
// tasks and to tag emitted records.
type TaskContext struct {
	Genre     string `json:"genre,omitempty"`
	GenreSlug string `json:"genre_slug,omitempty"`
	Year      int    `json:"year,omitempty"`
	PageIndex int    `json:"page_index,omitempty"`
	// ItemsSeen counts album links already discovered for this genre-year
	// across preceding list pages. Used to enforce the per-year cap.
	ItemsSeen int    `json:"items_seen,omitempty"`
	AlbumID   string `json:"album_id,omitempty"`
	Depth     int    `json:"depth,omitempty"`
}

// ContextKey groups progress tracking by genre-year traversal context.
func (c TaskContext) ContextKey() string {
	return fmt.Sprintf("%s/%d", c.GenreSlug, c.Year)
}

// CrawlTask is one unit of pending work. Tasks are immutable once created; a
// failed task is re-enqueued as a copy with an incremented attempt counter.
type CrawlTask struct {
	Type    PageType    `json:"type"`
	URL     string      `json:"url"`
	Context TaskContext `json:"context"`
	Attempt int         `json:"attempt,omitempty"`
}

// DedupKey returns the canonical identity used to prevent re-processing. For
// album detail pages the site's album identifier is used so URL variants
// collapse onto one key; everything else keys on the normalized URL.
func (t CrawlTask) DedupKey() string {
	if t.Type == PageAlbumDetail && t.Context.AlbumID != "" {
		return "album:" + t.Context.AlbumID
	}
	normalized, err := NormalizeURL(t.URL)
	if err != nil {
		return t.URL
	}
	return normalized
}

// Retry returns a copy of the task with the attempt counter incremented.
func (t CrawlTask) Retry() CrawlTask {
	t.Attempt++
	return t
}

// Priority classes; lower pops first. Listing pages are preferred over detail
// pages so traversal breadth is discovered before depth is exhausted.
const (
	classListing = iota
	classDetail
	numClasses
)

func (t CrawlTask) priorityClass() int {
	if t.Type == PageAlbumDetail {
		return classDetail
	}
	return classListing
}

// FetchStatus tags the outcome of a fetch for the session controller.
type FetchStatus int

// Fetch outcome taxonomy.
const (
	StatusSuccess FetchStatus = iota
	StatusTransient
	StatusPermanent
	StatusBlocked
)

func (s FetchStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTransient:
		return "transient_failure"
	case StatusPermanent:
		return "permanent_failure"
	case StatusBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("fetch_status(%d)", int(s))
	}
}

// Page is the raw transport-level response returned by a Transport.
type Page struct {
	URL          string
	FinalURL     string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	UsedFallback bool
}

// FetchResult is the classified outcome consumed by the session controller.
// The frontier never inspects it.
type FetchResult struct {
	Status       FetchStatus
	StatusCode   int
	Body         []byte
	FinalURL     string
	UsedFallback bool
	Err          error
}

// Record is the extracted output unit handed to the sink. Ownership transfers
// on emission; the engine holds no reference afterward.
type Record interface {
	// Key returns the record's canonical identity, matching the DedupKey of
	// the task that produced it.
	Key() string
}

// RouteResult is what a page handler returns: zero or more follow-on tasks
// plus zero or one record.
type RouteResult struct {
	Tasks  []CrawlTask
	Record Record
}

// SessionStats aggregates per-session counters reported at session end.
type SessionStats struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`
	Emitted   int64 `json:"emitted"`
	Retries   int64 `json:"retries"`
}
