package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/progress"
)

// SessionDeps bundles the collaborators a Session drives. Frontier, Dedup,
// Rate, Fetcher, Router, Sink, Retry, and Clock are required; Checkpoints and
// Hub are optional.
type SessionDeps struct {
	Frontier    *Frontier
	Dedup       *DedupStore
	Rate        RateController
	Fetcher     Fetcher
	Router      *Router
	Sink        Sink
	Checkpoints CheckpointStore
	Retry       RetryPolicy
	Clock       Clock
	Hub         *progress.Hub
	Logger      *zap.Logger
}

// Session drives the main crawl loop: pop a task, gate it through the dedup
// store and the rate controller, fetch, route, retry-or-advance, checkpoint.
// One session owns all mutable crawl state; there are no package-level
// singletons. A single worker processes one task at a time because the target
// site's politeness budget caps useful concurrency near one request in
// flight.
type Session struct {
	cfg      Config
	runID    string
	frontier *Frontier
	dedup    *DedupStore
	rate     RateController
	fetcher  Fetcher
	router   *Router
	sink     Sink
	store    CheckpointStore
	retry    RetryPolicy
	clock    Clock
	hub      *progress.Hub
	logger   *zap.Logger

	sinceCheckpoint int
	byContext       map[string]ContextProgress

	// stats is read concurrently by the status API while the loop mutates it.
	statsMu sync.Mutex
	stats   SessionStats
}

// NewSession constructs a Session. It fails fast on missing required
// collaborators rather than panicking mid-crawl.
func NewSession(cfg Config, runID string, deps SessionDeps) (*Session, error) {
	switch {
	case deps.Frontier == nil:
		return nil, errors.New("session requires a frontier")
	case deps.Dedup == nil:
		return nil, errors.New("session requires a dedup store")
	case deps.Rate == nil:
		return nil, errors.New("session requires a rate controller")
	case deps.Fetcher == nil:
		return nil, errors.New("session requires a fetcher")
	case deps.Router == nil:
		return nil, errors.New("session requires a router")
	case deps.Sink == nil:
		return nil, errors.New("session requires a sink")
	case deps.Retry == nil:
		return nil, errors.New("session requires a retry policy")
	case deps.Clock == nil:
		return nil, errors.New("session requires a clock")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:       cfg,
		runID:     runID,
		frontier:  deps.Frontier,
		dedup:     deps.Dedup,
		rate:      deps.Rate,
		fetcher:   deps.Fetcher,
		router:    deps.Router,
		sink:      deps.Sink,
		store:     deps.Checkpoints,
		retry:     deps.Retry,
		clock:     deps.Clock,
		hub:       deps.Hub,
		logger:    logger,
		byContext: make(map[string]ContextProgress),
	}, nil
}

// Seed pushes initial tasks, skipping any whose key is already completed.
func (s *Session) Seed(tasks ...CrawlTask) {
	for _, task := range tasks {
		if s.dedup.Seen(task.DedupKey()) {
			continue
		}
		s.frontier.Push(task)
	}
}

// Resume loads the prior checkpoint into the dedup store and frontier.
// ok is false when no checkpoint exists.
func (s *Session) Resume(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	cp, ok, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.dedup.Restore(cp.Completed)
	s.frontier.Restore(cp.Pending)
	for key, prog := range cp.Progress {
		s.byContext[key] = prog
	}
	s.logger.Info("resumed from checkpoint",
		zap.Time("saved_at", cp.SavedAt),
		zap.Int("completed_keys", len(cp.Completed)),
		zap.Int("pending_tasks", len(cp.Pending)),
	)
	return true, nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// Run executes the crawl loop until the frontier drains or ctx is canceled.
// The checkpoint is flushed on the way out either way, so a canceled session
// loses no completed work.
func (s *Session) Run(ctx context.Context) (SessionStats, error) {
	s.emit(progress.Event{Stage: progress.StageSessionStart})
	s.logger.Info("session starting",
		zap.String("run_id", s.runID),
		zap.Int("pending_tasks", s.frontier.Len()),
		zap.Int("completed_keys", s.dedup.Len()),
	)

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		task, ok := s.frontier.Pop(s.clock.Now())
		if !ok {
			if s.frontier.Len() == 0 {
				break
			}
			// Everything queued is still backing off.
			next, _ := s.frontier.NextEligible()
			if err := s.pause(ctx, next.Sub(s.clock.Now())); err != nil {
				runErr = err
				break
			}
			continue
		}

		s.step(ctx, task)

		s.sinceCheckpoint++
		if s.sinceCheckpoint >= s.cfg.CheckpointEvery {
			if err := s.flushCheckpoint(ctx); err != nil {
				s.logger.Warn("periodic checkpoint failed", zap.Error(err))
			}
		}
	}

	if err := s.flushCheckpoint(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("final checkpoint failed", zap.Error(err))
	}

	stats := s.Stats()
	s.emit(progress.Event{Stage: progress.StageSessionDone})
	s.logger.Info("session finished",
		zap.String("run_id", s.runID),
		zap.Int64("completed", stats.Completed),
		zap.Int64("failed", stats.Failed),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("emitted", stats.Emitted),
		zap.Int64("retries", stats.Retries),
	)
	return stats, runErr
}

// step processes one task end to end. No error originating here may
// terminate the loop; failures are logged, counted, and retried or dropped.
func (s *Session) step(ctx context.Context, task CrawlTask) {
	key := task.DedupKey()
	if s.dedup.Seen(key) {
		s.bump(func(st *SessionStats) { st.Skipped++ })
		TasksSkipped.Inc()
		s.emit(progress.Event{Stage: progress.StageTaskSkipped, PageType: string(task.Type), URL: task.URL})
		return
	}

	host := HostOf(task.URL)
	if err := s.rate.Wait(ctx, host); err != nil {
		// Canceled mid-wait; re-queue untouched so the checkpoint keeps it.
		s.frontier.Push(task)
		return
	}

	res := s.fetcher.Fetch(ctx, task.URL)
	if ctx.Err() != nil {
		s.frontier.Push(task)
		return
	}

	switch res.Status {
	case StatusSuccess:
		s.routeSuccess(ctx, task, key, host, res)
	case StatusTransient:
		s.scheduleRetry(task, res, 0)
	case StatusBlocked:
		// The pipeline already escalated and tried the fallback. Treat as
		// transient with a floor of twice the base delay.
		s.scheduleRetry(task, res, 2*s.cfg.BaseDelay)
	case StatusPermanent:
		s.abandon(task, res)
	}
}

func (s *Session) routeSuccess(ctx context.Context, task CrawlTask, key, host string, res FetchResult) {
	out, err := s.router.Dispatch(task, res.Body)
	if err != nil {
		// Extraction failure: the page fetched fine but yielded no record.
		// Counted complete, never retried.
		s.logger.Warn("extraction failed",
			zap.String("page_type", string(task.Type)),
			zap.String("url", task.URL),
			zap.Error(err),
		)
		s.complete(task, key, host)
		return
	}

	for _, next := range out.Tasks {
		if s.dedup.Seen(next.DedupKey()) {
			continue
		}
		s.frontier.Push(next)
	}

	if out.Record != nil {
		if err := s.sink.Emit(ctx, out.Record); err != nil {
			// The record was not durably handed over, so the key stays
			// unmarked; the safe failure direction is a duplicate re-fetch.
			s.logger.Error("sink emit failed",
				zap.String("url", task.URL),
				zap.String("record_key", out.Record.Key()),
				zap.Error(err),
			)
			s.scheduleRetry(task, FetchResult{Status: StatusTransient, Err: err}, 0)
			return
		}
		s.bump(func(st *SessionStats) { st.Emitted++ })
		RecordsEmitted.Inc()
		s.emit(progress.Event{Stage: progress.StageRecordEmitted, PageType: string(task.Type), URL: task.URL})
	}

	s.noteProgress(task, out.Record != nil)
	s.complete(task, key, host)
}

// complete marks the key, after any record has been emitted, and relaxes the
// host's rate budget.
func (s *Session) complete(task CrawlTask, key, host string) {
	s.dedup.Mark(key)
	s.bump(func(st *SessionStats) { st.Completed++ })
	TasksCompleted.Inc()
	s.rate.Relax(host)
	s.emit(progress.Event{Stage: progress.StageTaskDone, PageType: string(task.Type), URL: task.URL, Host: host})
}

func (s *Session) scheduleRetry(task CrawlTask, res FetchResult, floor time.Duration) {
	if !s.retry.ShouldRetry(res.Status, task.Attempt) {
		s.abandon(task, res)
		return
	}
	backoff := s.retry.Backoff(task.Attempt)
	if backoff < floor {
		backoff = floor
	}
	s.bump(func(st *SessionStats) { st.Retries++ })
	RetriesScheduled.Inc()
	s.logger.Warn("task retry scheduled",
		zap.String("page_type", string(task.Type)),
		zap.String("url", task.URL),
		zap.String("failure", res.Status.String()),
		zap.Int("next_attempt", task.Attempt+1),
		zap.Duration("backoff", backoff),
		zap.Error(res.Err),
	)
	s.emit(progress.Event{Stage: progress.StageTaskRetried, PageType: string(task.Type), URL: task.URL})
	s.frontier.PushDelayed(task.Retry(), s.clock.Now().Add(backoff))
}

// abandon drops a task for good and records the failure with its context.
func (s *Session) abandon(task CrawlTask, res FetchResult) {
	s.bump(func(st *SessionStats) { st.Failed++ })
	TasksFailed.Inc()
	s.logger.Error("task abandoned",
		zap.String("page_type", string(task.Type)),
		zap.String("url", task.URL),
		zap.String("failure", res.Status.String()),
		zap.Int("status_code", res.StatusCode),
		zap.Int("attempts", task.Attempt+1),
		zap.Error(res.Err),
	)
	s.emit(progress.Event{
		Stage:    progress.StageTaskFailed,
		PageType: string(task.Type),
		URL:      task.URL,
		Outcome:  res.Status.String(),
	})
}

func (s *Session) noteProgress(task CrawlTask, emitted bool) {
	if task.Context.GenreSlug == "" && task.Context.Year == 0 {
		return
	}
	key := task.Context.ContextKey()
	prog := s.byContext[key]
	if task.Type == PageRatings {
		prog.PagesRouted++
	}
	if emitted {
		prog.Emitted++
	}
	s.byContext[key] = prog
}

func (s *Session) flushCheckpoint(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	byContext := make(map[string]ContextProgress, len(s.byContext))
	for k, v := range s.byContext {
		byContext[k] = v
	}
	cp := Checkpoint{
		RunID:     s.runID,
		SavedAt:   s.clock.Now().UTC(),
		Completed: s.dedup.Snapshot(),
		Pending:   s.frontier.Snapshot(),
		Progress:  byContext,
		Stats:     s.Stats(),
	}
	if err := s.store.Save(ctx, cp); err != nil {
		return err
	}
	s.sinceCheckpoint = 0
	return nil
}

// pause sleeps for delay or until ctx is done.
func (s *Session) pause(ctx context.Context, delay time.Duration) error {
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

func (s *Session) bump(update func(*SessionStats)) {
	s.statsMu.Lock()
	update(&s.stats)
	s.statsMu.Unlock()
}

func (s *Session) emit(evt progress.Event) {
	if s.hub == nil {
		return
	}
	evt.RunID = s.runID
	s.hub.Emit(evt)
}
