package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewChromedpValidatesConfig(t *testing.T) {
	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)
}

func TestNoopAlwaysFails(t *testing.T) {
	_, err := NewNoop().Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
}

func TestAcquireReleaseBounded(t *testing.T) {
	tr := &Transport{limiter: make(chan struct{}, 1)}

	require.NoError(t, tr.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := tr.acquire(ctx)
	require.Error(t, err, "second acquire must block until release")

	tr.release()
	require.NoError(t, tr.acquire(context.Background()))
	tr.release()
}

func TestWaitDomainUnlimitedByDefault(t *testing.T) {
	tr := &Transport{perDomain: map[string]*rate.Limiter{}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, tr.waitDomain(ctx, "https://example.com/a"))
}

func TestWaitDomainPacesNavigations(t *testing.T) {
	tr := &Transport{
		cfg:       Config{DomainQPS: 20},
		perDomain: map[string]*rate.Limiter{},
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.waitDomain(context.Background(), "https://example.com/a"))
	}
	// Burst of 1 at 20 QPS: two of the three waits pay ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestResponseMetaCapturesDocument(t *testing.T) {
	meta := newResponseMeta()
	meta.capture(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status: 403,
			URL:    "https://example.com/a",
			Headers: network.Headers{
				"Server":     "cloudflare",
				"Set-Cookie": []interface{}{"a=1", "b=2"},
			},
		},
	})

	status, headers, url := meta.snapshot()
	assert.Equal(t, 403, status)
	assert.Equal(t, "https://example.com/a", url)
	assert.Equal(t, "cloudflare", headers.Get("Server"))
	assert.Len(t, headers.Values("Set-Cookie"), 2)
}

func TestResponseMetaIgnoresSubresources(t *testing.T) {
	meta := newResponseMeta()
	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 404, URL: "https://example.com/x.png"},
	})

	status, _, url := meta.snapshot()
	assert.Equal(t, 0, status)
	assert.Empty(t, url)
}

func TestSnapshotFallbacks(t *testing.T) {
	meta := newResponseMeta()

	status, headers, url := meta.snapshotWithFallbacks("https://req", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://req", url)
	assert.NotNil(t, headers)

	_, _, url = meta.snapshotWithFallbacks("https://req", "https://final")
	assert.Equal(t, "https://final", url)
}
