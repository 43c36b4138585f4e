// Package collyfetch implements the primary HTTP transport using gocolly.
package collyfetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aotydata/album-crawler/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Transport implements crawler.Transport using a Colly collector. Each Fetch
// clones the base collector, so a Transport is safe for reuse across fetches.
type Transport struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Transport. URL revisits are allowed because retries and
// resumed sessions legitimately re-request the same URL; deduplication lives
// in the session, not the transport. Robots.txt is obeyed: a disallowed URL
// surfaces as crawler.ErrRobotsDisallowed, and the robots probe itself is
// retried against transient TLS faults.
func New(cfg Config) *Transport {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = false
	c.WithTransport(&robotsAwareTransport{base: newHTTPTransport()})
	return &Transport{cfg: cfg, base: c}
}

// Fetch executes a single HTTP GET. Responses that carry a status code are
// returned as pages even when the status is an error; only transport-level
// failures (DNS, connect, timeout) surface as errors.
func (t *Transport) Fetch(ctx context.Context, rawURL string) (crawler.Page, error) {
	var (
		page     crawler.Page
		got      bool
		fetchErr error
	)

	collector := t.base.Clone()
	if t.cfg.UserAgent != "" {
		collector.UserAgent = t.cfg.UserAgent
	}
	timeout := t.cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		page = pageFrom(rawURL, r)
		got = true
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Colly routes non-2xx responses here with the status populated.
		// Surface them as pages so the caller classifies the status itself.
		if r != nil && r.StatusCode != 0 {
			page = pageFrom(rawURL, r)
			got = true
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return crawler.Page{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if got {
			return page, nil
		}
		if fetchErr != nil {
			return crawler.Page{}, wrapFetchErr(rawURL, fetchErr)
		}
		if err != nil {
			return crawler.Page{}, wrapFetchErr(rawURL, err)
		}
		return crawler.Page{}, fmt.Errorf("fetch %s: no response", rawURL)
	}
}

// wrapFetchErr translates colly's robots denial into the engine's sentinel so
// classification treats it as permanent rather than a retryable fault.
func wrapFetchErr(rawURL string, err error) error {
	if errors.Is(err, colly.ErrRobotsTxtBlocked) {
		return fmt.Errorf("fetch %s: %w", rawURL, crawler.ErrRobotsDisallowed)
	}
	return fmt.Errorf("fetch %s: %w", rawURL, err)
}

func pageFrom(rawURL string, r *colly.Response) crawler.Page {
	finalURL := rawURL
	if r.Request != nil && r.Request.URL != nil {
		finalURL = r.Request.URL.String()
	}
	return crawler.Page{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: r.StatusCode,
		Headers:    cloneHeaders(r.Headers),
		Body:       append([]byte(nil), r.Body...),
	}
}

func cloneHeaders(h *http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
