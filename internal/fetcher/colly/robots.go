package collyfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

var robotsRetryBackoff = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// robotsAwareTransport hardens the collector's robots.txt probe. The probe
// gates every fetch for a host, so it gets two protections the page fetches
// do not: timeouts are retried with a short backoff (exhaustion yields a
// synthetic allow-all so the crawl proceeds under its own politeness budget
// instead of stalling), and the result is cached per host so cloned
// collectors do not re-request robots.txt for every page.
type robotsAwareTransport struct {
	base http.RoundTripper

	mu    sync.Mutex
	cache map[string]*cachedRobots
}

type cachedRobots struct {
	statusCode int
	header     http.Header
	body       []byte
}

func (t *robotsAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("robots transport received nil request")
	}
	if !isRobotsTxtRequest(req) {
		return t.base.RoundTrip(req)
	}

	host := req.URL.Host
	if cached := t.lookup(host); cached != nil {
		return cached.response(req), nil
	}

	resp, err := roundTripWithRetry(req, t.base)
	if err != nil {
		return nil, err
	}
	cached, err := cacheResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("robots probe read: %w", err)
	}
	t.store(host, cached)
	return cached.response(req), nil
}

func (t *robotsAwareTransport) lookup(host string) *cachedRobots {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache[host]
}

func (t *robotsAwareTransport) store(host string, cached *cachedRobots) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache == nil {
		t.cache = make(map[string]*cachedRobots)
	}
	t.cache[host] = cached
}

func cacheResponse(resp *http.Response) (*cachedRobots, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	header := resp.Header
	if header == nil {
		header = make(http.Header)
	}
	return &cachedRobots{
		statusCode: resp.StatusCode,
		header:     header.Clone(),
		body:       body,
	}, nil
}

func (c *cachedRobots) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    c.statusCode,
		Status:        http.StatusText(c.statusCode),
		Header:        c.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.body)),
		ContentLength: int64(len(c.body)),
		Request:       req,
	}
}

func isRobotsTxtRequest(req *http.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	return strings.EqualFold(req.URL.Path, "/robots.txt")
}

func roundTripWithRetry(req *http.Request, base http.RoundTripper) (*http.Response, error) {
	maxAttempts := len(robotsRetryBackoff) + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := base.RoundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		if !isTransientProbeError(err) {
			return nil, fmt.Errorf("robots probe: %w", err)
		}
		if attempt == maxAttempts-1 {
			return syntheticAllowAllResponse(req), nil
		}
		if err := sleepWithContext(req.Context(), robotsRetryBackoff[attempt]); err != nil {
			return nil, fmt.Errorf("robots probe backoff: %w", err)
		}
	}
	return nil, errors.New("robots probe exhausted retries")
}

func isTransientProbeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "tls: handshake timeout")
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func syntheticAllowAllResponse(req *http.Request) *http.Response {
	const body = "User-agent: *\nAllow: /"
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        make(http.Header),
		Request:       req,
	}
}
