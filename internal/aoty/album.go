package aoty

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aotydata/album-crawler/internal/crawler"
)

// AlbumHandler extracts an AlbumRecord from an album detail page. Each field
// tries a chain of selectors because the site renders several page variants;
// a missing optional field is not an error, a missing title is.
type AlbumHandler struct {
	clock crawler.Clock
}

// NewAlbumHandler builds the handler. clock stamps ScrapedAt.
func NewAlbumHandler(clock crawler.Clock) *AlbumHandler {
	return &AlbumHandler{clock: clock}
}

// Handle parses the detail page into a record. Detail pages are terminal, so
// no follow-on tasks are produced.
func (h *AlbumHandler) Handle(task crawler.CrawlTask, body []byte) (crawler.RouteResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.RouteResult{}, fmt.Errorf("parse album page: %w", err)
	}

	id := task.Context.AlbumID
	if id == "" {
		id = AlbumIDFromURL(task.URL)
	}
	if id == "" {
		return crawler.RouteResult{}, fmt.Errorf("no album id derivable from %s", task.URL)
	}

	rec := AlbumRecord{
		AOTYID:      id,
		URL:         task.URL,
		Title:       extractTitle(doc),
		Artist:      extractArtist(doc),
		ReleaseDate: extractReleaseDate(doc),
		Genres:      extractGenres(doc),
		GenreTags:   extractGenreTags(doc),
		ScrapeGenre: task.Context.Genre,
		ScrapeYear:  task.Context.Year,
		ScrapedAt:   h.clock.Now().UTC(),
	}
	rec.CriticScore = extractCriticScore(doc)
	rec.UserScore = extractUserScore(doc)
	rec.CriticReviewCount = extractCriticReviewCount(doc)
	rec.UserReviewCount = extractUserReviewCount(doc)
	rec.CoverImageURL = firstAttr(doc,
		[]string{".albumTopBox.cover img", `img[alt*=" - "]`}, "src",
		`meta[property="og:image"]`)
	rec.Description = metaContent(doc, `meta[name="Description"]`)
	if rec.Description == "" {
		rec.Description = metaContent(doc, `meta[property="og:description"]`)
	}

	if rec.Title == "" {
		return crawler.RouteResult{}, fmt.Errorf("album page yielded no title: %s", task.URL)
	}
	return crawler.RouteResult{Record: rec}, nil
}

func extractTitle(doc *goquery.Document) string {
	if t := text(doc, `h1.albumTitle span[itemprop="name"]`); t != "" {
		return stripArtistPrefix(t)
	}
	if t := metaContent(doc, `meta[property="og:title"]`); t != "" {
		return stripArtistPrefix(t)
	}
	return stripArtistPrefix(text(doc, "h1"))
}

// Page titles read "Artist - Album"; keep the album side.
func stripArtistPrefix(s string) string {
	if _, after, found := strings.Cut(s, " - "); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(s)
}

func extractArtist(doc *goquery.Document) string {
	for _, sel := range []string{`[itemprop="byArtist"] span[itemprop="name"] a`, ".artist a"} {
		a := text(doc, sel)
		if a == "" {
			continue
		}
		lower := strings.ToLower(a)
		if lower == "discography" || lower == "submit correction" {
			continue
		}
		return a
	}
	if t := metaContent(doc, `meta[property="og:title"]`); t != "" {
		if before, _, found := strings.Cut(t, " - "); found {
			return strings.TrimSpace(before)
		}
	}
	return ""
}

var releaseDatePattern = regexp.MustCompile(`([A-Za-z]+)\s+(\d{1,2}),\s+(\d{4})`)

func extractReleaseDate(doc *goquery.Document) string {
	var date string
	doc.Find(".detailRow").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if !strings.Contains(row.Text(), "Release Date") {
			return true
		}
		if m := releaseDatePattern.FindStringSubmatch(row.Text()); m != nil {
			date = fmt.Sprintf("%s %s, %s", m[1], m[2], m[3])
			return false
		}
		return true
	})
	if date != "" {
		return date
	}

	// Older layouts link month and year separately under /releases/.
	var parts []string
	doc.Find(`.detailRow a[href*="/releases/"]`).Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(sel.Text()))
	})
	if len(parts) >= 2 {
		day := "1"
		if m := regexp.MustCompile(`(\d{1,2}),`).FindStringSubmatch(doc.Find(".detailRow").Text()); m != nil {
			day = m[1]
		}
		return fmt.Sprintf("%s %s, %s", parts[0], day, parts[1])
	}
	return ""
}

func extractCriticScore(doc *goquery.Document) *float64 {
	return parseFloat(text(doc, `[itemprop="ratingValue"] a`))
}

func extractUserScore(doc *goquery.Document) *float64 {
	if s := parseFloat(text(doc, ".albumUserScore a")); s != nil {
		return s
	}
	var score *float64
	doc.Find(".rating").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		t := strings.TrimSpace(sel.Text())
		if t == "" || t == "NR" {
			return true
		}
		if s := parseFloat(t); s != nil {
			score = s
			return false
		}
		return true
	})
	return score
}

var digitsPattern = regexp.MustCompile(`([\d,]+)`)

func extractCriticReviewCount(doc *goquery.Document) *int {
	if n := parseInt(metaContent(doc, `meta[itemprop="reviewCount"]`)); n != nil {
		return n
	}
	if n := parseInt(text(doc, `span[itemprop="ratingCount"]`)); n != nil {
		return n
	}
	if m := digitsPattern.FindStringSubmatch(text(doc, ".albumCriticScoreBox .numReviews")); m != nil {
		return parseInt(m[1])
	}
	return nil
}

func extractUserReviewCount(doc *goquery.Document) *int {
	if n := parseInt(text(doc, ".albumUserScoreBox .numReviews strong")); n != nil {
		return n
	}
	if m := digitsPattern.FindStringSubmatch(text(doc, ".albumUserScoreBox .numReviews a")); m != nil {
		return parseInt(m[1])
	}
	return nil
}

func extractGenres(doc *goquery.Document) []string {
	var genres []string
	seen := make(map[string]struct{})
	add := func(g string) {
		g = strings.TrimSpace(g)
		if g == "" {
			return
		}
		if _, dup := seen[g]; dup {
			return
		}
		seen[g] = struct{}{}
		genres = append(genres, g)
	}
	doc.Find(`meta[itemprop="genre"]`).Each(func(_ int, sel *goquery.Selection) {
		if c, ok := sel.Attr("content"); ok {
			add(c)
		}
	})
	doc.Find(`.detailRow a[href*="/genre/"]`).Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})
	return genres
}

func extractGenreTags(doc *goquery.Document) []string {
	var tags []string
	doc.Find(".detailRow .secondary").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			tags = append(tags, t)
		}
	})
	return tags
}

func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func metaContent(doc *goquery.Document, selector string) string {
	c, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(c)
}

func firstAttr(doc *goquery.Document, selectors []string, attr string, metaFallback string) string {
	if v, ok := doc.Find(selectors[0]).First().Attr(attr); ok && v != "" {
		return v
	}
	if v := metaContent(doc, metaFallback); v != "" {
		return v
	}
	for _, sel := range selectors[1:] {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(s string) *int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
