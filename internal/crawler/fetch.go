package crawler

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrRobotsDisallowed marks a URL the target's robots.txt forbids. Transports
// wrap it so classification can tell a policy denial from a network fault.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Pipeline is the fetch abstraction: it issues the URL through the primary
// transport, classifies the response, and on a blocking signal escalates the
// host's rate budget and retries once through the fallback transport before
// returning. Everything above it sees only a FetchResult; nothing above it
// knows how a block is gotten past.
type Pipeline struct {
	primary  Transport
	fallback Transport
	detector BlockDetector
	rate     RateController
	logger   *zap.Logger
}

// NewPipeline constructs a Pipeline. fallback may be nil, in which case a
// blocked response is returned as-is for the caller's retry policy to handle.
func NewPipeline(primary, fallback Transport, detector BlockDetector, rate RateController, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		primary:  primary,
		fallback: fallback,
		detector: detector,
		rate:     rate,
		logger:   logger,
	}
}

// Fetch retrieves rawURL and classifies the outcome. The caller is expected
// to have passed the rate gate for the primary request already; the internal
// fallback re-issue passes the gate again on its own.
func (p *Pipeline) Fetch(ctx context.Context, rawURL string) FetchResult {
	page, err := p.primary.Fetch(ctx, rawURL)
	res := p.classify(page, err)
	if res.Status != StatusBlocked {
		return res
	}

	host := HostOf(rawURL)
	BlockedResponses.Inc()
	p.rate.Escalate(host)
	p.logger.Warn("blocking signal detected",
		zap.String("url", rawURL),
		zap.Int("status_code", res.StatusCode),
	)

	if p.fallback == nil {
		return res
	}

	if err := p.rate.Wait(ctx, host); err != nil {
		res.Err = err
		return res
	}

	FallbackFetches.Inc()
	fbPage, fbErr := p.fallback.Fetch(ctx, rawURL)
	fbRes := p.classify(fbPage, fbErr)
	fbRes.UsedFallback = true
	if fbRes.Status == StatusBlocked {
		p.logger.Warn("fallback transport still blocked", zap.String("url", rawURL))
	}
	return fbRes
}

// classify maps a raw transport response onto the failure taxonomy. Network
// and server-side errors are transient; missing resources are permanent;
// challenge pages are blocked regardless of status code.
func (p *Pipeline) classify(page Page, err error) FetchResult {
	if err != nil {
		// A robots denial is a policy decision, not a fault; retrying it
		// would burn the whole budget on a URL that will never be allowed.
		if errors.Is(err, ErrRobotsDisallowed) {
			return FetchResult{Status: StatusPermanent, Err: err}
		}
		// Timeouts, connection errors, and cancellation all leave the task
		// retryable; cancellation is caught by the session loop before the
		// next attempt.
		return FetchResult{Status: StatusTransient, Err: err}
	}

	if p.detector != nil && p.detector.Blocked(page.StatusCode, page.Body) {
		return FetchResult{
			Status:       StatusBlocked,
			StatusCode:   page.StatusCode,
			Body:         page.Body,
			FinalURL:     page.FinalURL,
			UsedFallback: page.UsedFallback,
		}
	}

	res := FetchResult{
		StatusCode:   page.StatusCode,
		FinalURL:     page.FinalURL,
		UsedFallback: page.UsedFallback,
	}
	switch {
	case page.StatusCode >= 200 && page.StatusCode < 300:
		res.Status = StatusSuccess
		res.Body = page.Body
	case page.StatusCode == 404 || page.StatusCode == 410:
		res.Status = StatusPermanent
	case page.StatusCode == 408 || page.StatusCode == 429 || page.StatusCode >= 500:
		res.Status = StatusTransient
	default:
		res.Status = StatusPermanent
	}
	return res
}
