package aoty

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aotydata/album-crawler/internal/crawler"
)

var genreSlugPattern = regexp.MustCompile(`/genre/\d+-(.+?)/`)

// Link texts that match a[href*="/genre/"] but are navigation, not genres.
var excludedLinkTexts = map[string]struct{}{
	"view more":       {},
	"similar artists": {},
	"follow":          {},
	"on this day":     {},
	"newsworthy":      {},
	"user updates":    {},
	"site updates":    {},
	"privacy policy":  {},
	"contact us":      {},
}

// GenreIndexHandler parses the genre index page and fans out one ratings-page
// task per genre and year, years descending so recent releases surface first.
type GenreIndexHandler struct {
	targetGenre string
	startYear   int
	yearsBack   int
}

// NewGenreIndexHandler builds the handler from crawl configuration.
func NewGenreIndexHandler(cfg crawler.Config) *GenreIndexHandler {
	return &GenreIndexHandler{
		targetGenre: cfg.TargetGenre,
		startYear:   cfg.StartYear,
		yearsBack:   cfg.YearsBack,
	}
}

// Handle extracts genre links and emits the per-genre-year ratings tasks.
func (h *GenreIndexHandler) Handle(task crawler.CrawlTask, body []byte) (crawler.RouteResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.RouteResult{}, fmt.Errorf("parse genre index: %w", err)
	}

	type genre struct {
		name string
		slug string
	}
	var genres []genre
	seen := make(map[string]struct{})

	doc.Find(`a[href*="/genre/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if strings.Contains(href, "/genre/list") || strings.Contains(href, "/genre.php") {
			return
		}
		m := genreSlugPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		slug := m[1]

		name := strings.TrimSpace(sel.Text())
		if name == "" {
			name = titleFromSlug(slug)
		}
		if _, excluded := excludedLinkTexts[strings.ToLower(name)]; excluded {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}
		genres = append(genres, genre{name: name, slug: slug})
	})

	if len(genres) == 0 {
		return crawler.RouteResult{}, fmt.Errorf("genre index yielded no genres: %s", task.URL)
	}

	sort.Slice(genres, func(i, j int) bool { return genres[i].slug < genres[j].slug })

	var out crawler.RouteResult
	for _, g := range genres {
		if h.targetGenre != "" && !matchesTarget(g.slug, g.name, h.targetGenre) {
			continue
		}
		for year := h.startYear; year > h.startYear-h.yearsBack; year-- {
			url := fmt.Sprintf("/ratings/user-highest-rated/%d/%s/", year, g.slug)
			resolved, err := crawler.ResolveRef(task.URL, url)
			if err != nil {
				continue
			}
			out.Tasks = append(out.Tasks, crawler.CrawlTask{
				Type: crawler.PageRatings,
				URL:  resolved,
				Context: crawler.TaskContext{
					Genre:     g.name,
					GenreSlug: g.slug,
					Year:      year,
					Depth:     task.Context.Depth + 1,
				},
			})
		}
	}
	return out, nil
}

// matchesTarget accepts slug or display-name matches, tolerating space/dash
// variants and substrings, mirroring how users spell genre filters.
func matchesTarget(slug, name, target string) bool {
	target = strings.ToLower(target)
	slug = strings.ToLower(slug)
	name = strings.ToLower(name)
	switch {
	case slug == target,
		slug == strings.ReplaceAll(target, " ", "-"),
		name == target,
		name == strings.ReplaceAll(target, "-", " "),
		strings.Contains(slug, target),
		strings.Contains(name, target):
		return true
	}
	return false
}

func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
