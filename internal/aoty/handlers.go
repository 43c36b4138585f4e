package aoty

import (
	"strings"

	"github.com/aotydata/album-crawler/internal/crawler"
)

// RegisterHandlers binds the three page handlers to their page types.
func RegisterHandlers(r *crawler.Router, cfg crawler.Config, clock crawler.Clock) {
	r.Register(crawler.PageGenreIndex, NewGenreIndexHandler(cfg))
	r.Register(crawler.PageRatings, NewRatingsHandler(cfg))
	r.Register(crawler.PageAlbumDetail, NewAlbumHandler(clock))
}

// SeedTask returns the single task a fresh crawl starts from.
func SeedTask(cfg crawler.Config) crawler.CrawlTask {
	return crawler.CrawlTask{
		Type: crawler.PageGenreIndex,
		URL:  strings.TrimRight(cfg.BaseURL, "/") + "/genre.php",
	}
}
