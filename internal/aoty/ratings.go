package aoty

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/aotydata/album-crawler/internal/crawler"
)

// RatingsHandler parses one page of a genre-year ratings list: album links
// become detail tasks, and the next list page is enqueued while the per-year
// cap has not been reached.
type RatingsHandler struct {
	albumsPerYear int
}

// NewRatingsHandler builds the handler from crawl configuration.
func NewRatingsHandler(cfg crawler.Config) *RatingsHandler {
	return &RatingsHandler{albumsPerYear: cfg.AlbumsPerYear}
}

// Handle extracts album links and pagination. The ItemsSeen counter in the
// task context carries how many links earlier pages of this genre-year
// already produced; it bounds both the detail fan-out and pagination.
func (h *RatingsHandler) Handle(task crawler.CrawlTask, body []byte) (crawler.RouteResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.RouteResult{}, fmt.Errorf("parse ratings page: %w", err)
	}

	var links []string
	doc.Find(".albumListRow .albumListTitle a").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})

	ctx := task.Context
	remaining := h.albumsPerYear - ctx.ItemsSeen
	if remaining < 0 {
		remaining = 0
	}
	take := len(links)
	if take > remaining {
		take = remaining
	}

	var out crawler.RouteResult
	for i := 0; i < take; i++ {
		resolved, err := crawler.ResolveRef(task.URL, links[i])
		if err != nil {
			continue
		}
		out.Tasks = append(out.Tasks, crawler.CrawlTask{
			Type: crawler.PageAlbumDetail,
			URL:  resolved,
			Context: crawler.TaskContext{
				Genre:     ctx.Genre,
				GenreSlug: ctx.GenreSlug,
				Year:      ctx.Year,
				AlbumID:   AlbumIDFromURL(resolved),
				Depth:     ctx.Depth + 1,
			},
		})
	}

	// All links found on this page count toward the cap even when the cap
	// truncated the fan-out, so pagination stops at the same point a
	// sequential walk would.
	seen := ctx.ItemsSeen + len(links)
	if next, ok := doc.Find("a.next").First().Attr("href"); ok && seen < h.albumsPerYear {
		resolved, err := crawler.ResolveRef(task.URL, next)
		if err == nil {
			out.Tasks = append(out.Tasks, crawler.CrawlTask{
				Type: crawler.PageRatings,
				URL:  resolved,
				Context: crawler.TaskContext{
					Genre:     ctx.Genre,
					GenreSlug: ctx.GenreSlug,
					Year:      ctx.Year,
					PageIndex: ctx.PageIndex + 1,
					ItemsSeen: seen,
					Depth:     ctx.Depth,
				},
			})
		}
	}
	return out, nil
}
