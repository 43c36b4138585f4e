package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksCompleted tracks tasks that finished successfully.
	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_tasks_completed_total",
		Help: "The total number of crawl tasks completed successfully.",
	})
	// TasksFailed tracks tasks abandoned after exhausting retries or hitting
	// a permanent failure.
	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_tasks_failed_total",
		Help: "The total number of crawl tasks abandoned as failed.",
	})
	// TasksSkipped tracks tasks short-circuited by the dedup store.
	TasksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_tasks_skipped_total",
		Help: "The total number of tasks skipped because their key was already completed.",
	})
	// RecordsEmitted tracks records handed to the sink.
	RecordsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_records_emitted_total",
		Help: "The total number of records emitted to the sink.",
	})
	// BlockedResponses tracks responses classified as anti-automation blocks.
	BlockedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_blocked_responses_total",
		Help: "The total number of responses classified as blocking challenges.",
	})
	// FallbackFetches tracks re-issues through the fallback transport.
	FallbackFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_fallback_fetches_total",
		Help: "The total number of fetches re-issued through the fallback transport.",
	})
	// RateEscalations tracks per-host delay escalations.
	RateEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_rate_escalations_total",
		Help: "The total number of per-host rate limit escalations.",
	})
	// RetriesScheduled tracks tasks re-enqueued with a backoff deadline.
	RetriesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_retries_scheduled_total",
		Help: "The total number of task retries scheduled.",
	})
)
