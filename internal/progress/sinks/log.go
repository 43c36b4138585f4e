// Package sinks provides progress sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/progress"
)

// LogSink writes progress events through a zap logger. Session milestones log
// at info, per-task events at debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink logging through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.PageType != "" {
			fields = append(fields, zap.String("page_type", evt.PageType))
		}
		if evt.URL != "" {
			fields = append(fields, zap.String("url", evt.URL))
		}
		if evt.Outcome != "" {
			fields = append(fields, zap.String("outcome", evt.Outcome))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		switch evt.Stage {
		case progress.StageSessionStart, progress.StageSessionDone:
			s.logger.Info("session progress", fields...)
		case progress.StageTaskFailed:
			s.logger.Warn("task progress", fields...)
		default:
			s.logger.Debug("task progress", fields...)
		}
	}
	return nil
}
