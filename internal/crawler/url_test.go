package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://WWW.Example.COM/Path", "https://www.example.com/Path"},
		{"strips default https port", "https://example.com:443/a", "https://example.com/a"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"keeps non-default port", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"drops fragment", "https://example.com/a#section", "https://example.com/a"},
		{"sorts query params", "https://example.com/a?z=1&a=2", "https://example.com/a?a=2&z=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURLEquivalentFormsCollapse(t *testing.T) {
	a, err := NormalizeURL("https://WWW.albumoftheyear.org:443/album/1-x.php#reviews")
	require.NoError(t, err)
	b, err := NormalizeURL("https://www.albumoftheyear.org/album/1-x.php")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "www.albumoftheyear.org", HostOf("https://WWW.Albumoftheyear.ORG/genre.php"))
	assert.Equal(t, "example.com", HostOf("https://example.com:8443/a"))
	assert.Equal(t, "", HostOf("://bad"))
}

func TestResolveRef(t *testing.T) {
	got, err := ResolveRef("https://www.albumoftheyear.org/ratings/user-highest-rated/2025/rock/", "/album/1-x.php")
	require.NoError(t, err)
	assert.Equal(t, "https://www.albumoftheyear.org/album/1-x.php", got)

	got, err = ResolveRef("https://www.albumoftheyear.org/genre.php", "https://other.example/x")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example/x", got)
}

func TestDedupKeyUsesAlbumIDForDetails(t *testing.T) {
	detail := CrawlTask{
		Type:    PageAlbumDetail,
		URL:     "https://www.albumoftheyear.org/album/1234-a-b.php?ref=list",
		Context: TaskContext{AlbumID: "1234-a-b"},
	}
	assert.Equal(t, "album:1234-a-b", detail.DedupKey())

	listing := CrawlTask{Type: PageRatings, URL: "HTTPS://example.com/a#x"}
	assert.Equal(t, "https://example.com/a", listing.DedupKey())
}
