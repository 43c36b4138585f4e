package aoty

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aotydata/album-crawler/internal/crawler"
)

func ratingsHTML(albums int, withNext bool) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < albums; i++ {
		fmt.Fprintf(&b,
			`<div class="albumListRow"><div class="albumListTitle"><a href="/album/%d-artist-album-%d.php">Album %d</a></div></div>`,
			1000+i, i, i)
	}
	if withNext {
		b.WriteString(`<a class="next" href="/ratings/user-highest-rated/2025/rock/2/">Next</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func ratingsTask(itemsSeen, pageIndex int) crawler.CrawlTask {
	return crawler.CrawlTask{
		Type: crawler.PageRatings,
		URL:  "https://www.albumoftheyear.org/ratings/user-highest-rated/2025/rock/",
		Context: crawler.TaskContext{
			Genre:     "Rock",
			GenreSlug: "rock",
			Year:      2025,
			PageIndex: pageIndex,
			ItemsSeen: itemsSeen,
		},
	}
}

func TestRatingsPageFanOut(t *testing.T) {
	h := NewRatingsHandler(crawler.Config{AlbumsPerYear: 250})
	out, err := h.Handle(ratingsTask(0, 0), []byte(ratingsHTML(50, true)))
	require.NoError(t, err)
	require.Nil(t, out.Record)

	// 50 detail tasks plus the next list page.
	require.Len(t, out.Tasks, 51)

	details := out.Tasks[:50]
	for i, task := range details {
		require.Equal(t, crawler.PageAlbumDetail, task.Type)
		assert.Equal(t, fmt.Sprintf("%d-artist-album-%d", 1000+i, i), task.Context.AlbumID)
		assert.Equal(t, "rock", task.Context.GenreSlug)
		assert.Equal(t, 2025, task.Context.Year)
		assert.True(t, strings.HasPrefix(task.URL, "https://www.albumoftheyear.org/album/"))
	}

	next := out.Tasks[50]
	assert.Equal(t, crawler.PageRatings, next.Type)
	assert.Equal(t, "https://www.albumoftheyear.org/ratings/user-highest-rated/2025/rock/2/", next.URL)
	assert.Equal(t, 1, next.Context.PageIndex)
	assert.Equal(t, 50, next.Context.ItemsSeen)
}

func TestRatingsPageCapTruncatesFanOut(t *testing.T) {
	h := NewRatingsHandler(crawler.Config{AlbumsPerYear: 60})
	out, err := h.Handle(ratingsTask(45, 1), []byte(ratingsHTML(50, true)))
	require.NoError(t, err)

	// 45 already seen out of 60: only 15 more details, and 45+50 >= 60 stops
	// pagination.
	require.Len(t, out.Tasks, 15)
	for _, task := range out.Tasks {
		assert.Equal(t, crawler.PageAlbumDetail, task.Type)
	}
}

func TestRatingsPageCapReached(t *testing.T) {
	h := NewRatingsHandler(crawler.Config{AlbumsPerYear: 40})
	out, err := h.Handle(ratingsTask(40, 1), []byte(ratingsHTML(50, true)))
	require.NoError(t, err)
	assert.Empty(t, out.Tasks)
}

func TestRatingsPageNoNextLink(t *testing.T) {
	h := NewRatingsHandler(crawler.Config{AlbumsPerYear: 250})
	out, err := h.Handle(ratingsTask(0, 0), []byte(ratingsHTML(10, false)))
	require.NoError(t, err)
	require.Len(t, out.Tasks, 10)
	for _, task := range out.Tasks {
		assert.Equal(t, crawler.PageAlbumDetail, task.Type)
	}
}

func TestRatingsPageEmptyListIsNotError(t *testing.T) {
	h := NewRatingsHandler(crawler.Config{AlbumsPerYear: 250})
	out, err := h.Handle(ratingsTask(0, 0), []byte("<html><body>no rows</body></html>"))
	require.NoError(t, err)
	assert.Empty(t, out.Tasks)
}
