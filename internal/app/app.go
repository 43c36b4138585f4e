// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/crawler"
	"github.com/aotydata/album-crawler/internal/id/uuid"
	"github.com/aotydata/album-crawler/internal/logging"
	"github.com/aotydata/album-crawler/internal/progress"
	"github.com/aotydata/album-crawler/internal/progress/sinks"
	"github.com/aotydata/album-crawler/internal/sink"
)

// App holds the shared, long-lived services: logger, record sink, checkpoint
// store, and the progress hub. It is built once per invocation and passed to
// commands through the cobra context.
type App struct {
	logger      *zap.Logger
	runID       string
	sink        crawler.Sink
	sinkCloser  func() error
	checkpoints crawler.CheckpointStore
	hub         *progress.Hub
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// RunID returns the session's unique identifier.
func (a *App) RunID() string { return a.runID }

// GetSink returns the configured record sink.
func (a *App) GetSink() crawler.Sink { return a.sink }

// GetCheckpoints returns the checkpoint store.
func (a *App) GetCheckpoints() crawler.CheckpointStore { return a.checkpoints }

// GetHub returns the progress event hub.
func (a *App) GetHub() *progress.Hub { return a.hub }

// NewApp creates and initializes a new App from the loaded configuration. It
// fails fast if any critical service cannot be initialized.
func NewApp(ctx context.Context) (*App, error) {
	l := logging.L
	l.Info("Initializing application services...")

	runID, err := uuid.NewGenerator().NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	recordSink, closer, err := buildSink(ctx, l)
	if err != nil {
		return nil, err
	}

	checkpoints := crawler.NewFileCheckpointStore(viper.GetString("crawler.checkpoint_path"), l)

	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		return nil, fmt.Errorf("init progress metrics: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: l}, sinks.NewLogSink(l), promSink)

	l.Info("Application services initialized successfully.", zap.String("run_id", runID))
	return &App{
		logger:      l,
		runID:       runID,
		sink:        recordSink,
		sinkCloser:  closer,
		checkpoints: checkpoints,
		hub:         hub,
	}, nil
}

func buildSink(ctx context.Context, l *zap.Logger) (crawler.Sink, func() error, error) {
	switch provider := viper.GetString("sink.provider"); provider {
	case "jsonl":
		s, err := sink.NewJSONL(viper.GetString("sink.output_dir"), time.Now(), l)
		if err != nil {
			return nil, nil, fmt.Errorf("init jsonl sink: %w", err)
		}
		return s, s.Close, nil
	case "postgres":
		dsn := viper.GetString("sink.postgres_dsn")
		if dsn == "" {
			return nil, nil, fmt.Errorf("sink provider is 'postgres' but sink.postgres_dsn is not set")
		}
		l.Info("Connecting to PostgreSQL...")
		s, err := sink.NewPostgres(ctx, dsn, l)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres sink: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil
	case "noop":
		l.Info("Using No-Op record sink. Extracted albums will be discarded.")
		return sink.NewNoop(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink provider: %s", provider)
	}
}

// Close gracefully shuts down all services in the App container. Called by a
// cobra hook after the command finishes.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if a.hub != nil {
		a.hub.Close()
		if dropped := a.hub.Dropped(); dropped > 0 {
			a.logger.Warn("Progress events were dropped", zap.Int64("dropped", dropped))
		}
	}
	if a.sinkCloser != nil {
		if err := a.sinkCloser(); err != nil {
			a.logger.Warn("Error closing record sink", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("Error syncing logger on shutdown", zap.Error(err))
	}
}
