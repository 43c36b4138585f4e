package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aotydata/album-crawler/internal/progress"
)

// PrometheusSink exports progress events as Prometheus metrics, partitioned
// by page type and outcome.
type PrometheusSink struct {
	taskEvents *prometheus.CounterVec
	records    prometheus.Counter
	sessions   *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
// A nil registry uses the default registerer.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		taskEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_progress_task_events_total",
			Help: "Task progress events partitioned by stage and page type.",
		}, []string{"stage", "page_type"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_progress_records_total",
			Help: "Records emitted as observed on the progress stream.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_progress_sessions_total",
			Help: "Session lifecycle events partitioned by stage.",
		}, []string{"stage"}),
	}
	for _, collector := range []prometheus.Collector{s.taskEvents, s.records, s.sessions} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageSessionStart, progress.StageSessionDone:
			s.sessions.WithLabelValues(string(evt.Stage)).Inc()
		case progress.StageRecordEmitted:
			s.records.Inc()
		default:
			s.taskEvents.WithLabelValues(string(evt.Stage), evt.PageType).Inc()
		}
	}
	return nil
}
