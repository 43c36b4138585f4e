// Package aoty contains the albumoftheyear.org page handlers and the album
// record they extract. Handlers are pure: they parse a fetched body into
// follow-on tasks and at most one record, and never perform I/O.
package aoty

import (
	"regexp"
	"time"
)

// AlbumRecord is the extracted metadata for one album detail page. Pointer
// fields distinguish "absent on the page" from a zero value.
type AlbumRecord struct {
	AOTYID            string     `json:"aoty_id"`
	URL               string     `json:"url"`
	Title             string     `json:"title,omitempty"`
	Artist            string     `json:"artist_name,omitempty"`
	ReleaseDate       string     `json:"release_date,omitempty"`
	CriticScore       *float64   `json:"critic_score,omitempty"`
	UserScore         *float64   `json:"user_score,omitempty"`
	CriticReviewCount *int       `json:"critic_review_count,omitempty"`
	UserReviewCount   *int       `json:"user_review_count,omitempty"`
	Genres            []string   `json:"genres,omitempty"`
	GenreTags         []string   `json:"genre_tags,omitempty"`
	CoverImageURL     string     `json:"cover_image_url,omitempty"`
	Description       string     `json:"description,omitempty"`
	ScrapeGenre       string     `json:"scrape_genre,omitempty"`
	ScrapeYear        int        `json:"scrape_year,omitempty"`
	ScrapedAt         time.Time  `json:"scraped_at"`
}

// Key matches the dedup key of the detail task that produced the record.
func (r AlbumRecord) Key() string {
	return "album:" + r.AOTYID
}

var albumIDPattern = regexp.MustCompile(`/album/(\d+-[^/]+)\.php`)

// AlbumIDFromURL extracts the site's album identifier, e.g.
// "/album/1234-artist-title.php" yields "1234-artist-title". Empty when the
// URL is not a detail page.
func AlbumIDFromURL(rawURL string) string {
	m := albumIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
