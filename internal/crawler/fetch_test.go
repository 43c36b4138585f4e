package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transportFunc func(ctx context.Context, rawURL string) (Page, error)

func (f transportFunc) Fetch(ctx context.Context, rawURL string) (Page, error) {
	return f(ctx, rawURL)
}

type recordingRate struct {
	waits     []string
	escalates []string
	relaxes   []string
	waitErr   error
}

func (r *recordingRate) Wait(_ context.Context, host string) error {
	r.waits = append(r.waits, host)
	return r.waitErr
}

func (r *recordingRate) Escalate(host string) { r.escalates = append(r.escalates, host) }
func (r *recordingRate) Relax(host string)    { r.relaxes = append(r.relaxes, host) }

func staticPage(status int, body string) transportFunc {
	return func(context.Context, string) (Page, error) {
		return Page{StatusCode: status, Body: []byte(body)}, nil
	}
}

func newTestDetector() *SignatureDetector {
	return NewSignatureDetector(DefaultBlockSignatures, DefaultBlockStatusCodes)
}

func TestClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   FetchStatus
	}{
		{"200 ok", 200, "<html>albums</html>", StatusSuccess},
		{"204 ok", 204, "", StatusSuccess},
		{"404 permanent", 404, "", StatusPermanent},
		{"410 permanent", 410, "", StatusPermanent},
		{"408 transient", 408, "", StatusTransient},
		{"429 transient", 429, "", StatusTransient},
		{"500 transient", 500, "", StatusTransient},
		{"503 transient", 503, "", StatusTransient},
		{"301 unfollowed redirect permanent", 301, "", StatusPermanent},
		{"403 blocked", 403, "", StatusBlocked},
		{"200 with challenge marker blocked", 200, "just a moment...", StatusBlocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate := &recordingRate{}
			p := NewPipeline(staticPage(tc.status, tc.body), nil, newTestDetector(), rate, nil)
			res := p.Fetch(context.Background(), "https://www.albumoftheyear.org/genre.php")
			assert.Equal(t, tc.want, res.Status)
		})
	}
}

func TestRobotsDenialIsPermanent(t *testing.T) {
	rate := &recordingRate{}
	denied := transportFunc(func(context.Context, string) (Page, error) {
		return Page{}, fmt.Errorf("fetch https://x/a: %w", ErrRobotsDisallowed)
	})
	p := NewPipeline(denied, nil, newTestDetector(), rate, nil)

	res := p.Fetch(context.Background(), "https://x/a")
	assert.Equal(t, StatusPermanent, res.Status, "a robots denial never earns a retry")
	assert.ErrorIs(t, res.Err, ErrRobotsDisallowed)
	assert.Empty(t, rate.escalates)
}

func TestTransportErrorIsTransient(t *testing.T) {
	rate := &recordingRate{}
	fail := transportFunc(func(context.Context, string) (Page, error) {
		return Page{}, errors.New("connection refused")
	})
	p := NewPipeline(fail, nil, newTestDetector(), rate, nil)

	res := p.Fetch(context.Background(), "https://x/a")
	assert.Equal(t, StatusTransient, res.Status)
	assert.Error(t, res.Err)
	assert.Empty(t, rate.escalates)
}

func TestBlockedEscalatesAndUsesFallbackOnce(t *testing.T) {
	rate := &recordingRate{}
	fallback := transportFunc(func(context.Context, string) (Page, error) {
		return Page{StatusCode: 200, Body: []byte("<html>rendered</html>"), UsedFallback: true}, nil
	})
	p := NewPipeline(staticPage(403, ""), fallback, newTestDetector(), rate, nil)

	res := p.Fetch(context.Background(), "https://www.albumoftheyear.org/album/1-x.php")
	require.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, []string{"www.albumoftheyear.org"}, rate.escalates)
	assert.Equal(t, []string{"www.albumoftheyear.org"}, rate.waits, "fallback passes the rate gate")
}

func TestBlockedWithoutFallbackReturnsBlocked(t *testing.T) {
	rate := &recordingRate{}
	p := NewPipeline(staticPage(403, ""), nil, newTestDetector(), rate, nil)

	res := p.Fetch(context.Background(), "https://x/a")
	assert.Equal(t, StatusBlocked, res.Status)
	assert.Len(t, rate.escalates, 1)
	assert.Empty(t, rate.waits)
}

func TestFallbackStillBlocked(t *testing.T) {
	rate := &recordingRate{}
	fallback := staticPage(200, "verify you are human")
	p := NewPipeline(staticPage(403, ""), fallback, newTestDetector(), rate, nil)

	res := p.Fetch(context.Background(), "https://x/a")
	assert.Equal(t, StatusBlocked, res.Status)
	assert.True(t, res.UsedFallback)
	// Escalated once for the primary block; the fallback outcome is the
	// session's retry decision.
	assert.Len(t, rate.escalates, 1)
}

func TestFallbackSkippedWhenRateWaitCanceled(t *testing.T) {
	rate := &recordingRate{waitErr: context.Canceled}
	called := false
	fallback := transportFunc(func(context.Context, string) (Page, error) {
		called = true
		return Page{StatusCode: 200}, nil
	})
	p := NewPipeline(staticPage(403, ""), fallback, newTestDetector(), rate, nil)

	res := p.Fetch(context.Background(), "https://x/a")
	assert.Equal(t, StatusBlocked, res.Status)
	assert.Error(t, res.Err)
	assert.False(t, called)
}

func TestSuccessCarriesBody(t *testing.T) {
	rate := &recordingRate{}
	p := NewPipeline(staticPage(200, "<html>payload</html>"), nil, newTestDetector(), rate, nil)

	res := p.Fetch(context.Background(), "https://x/a")
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "<html>payload</html>", string(res.Body))
}
