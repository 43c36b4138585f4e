// Package api exposes the crawl session over HTTP: liveness, a stats
// snapshot, and Prometheus metrics. It is read-only; the crawl is controlled
// from the CLI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/crawler"
	custommw "github.com/aotydata/album-crawler/internal/middleware"
)

// StatsProvider yields the live session counters. *crawler.Session satisfies
// it.
type StatsProvider interface {
	Stats() crawler.SessionStats
}

// Server serves the status endpoints.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

type statusResponse struct {
	RunID string               `json:"run_id"`
	Now   time.Time            `json:"now"`
	Stats crawler.SessionStats `json:"stats"`
}

// New builds a Server on addr. gatherer may be nil to use the default
// registry.
func New(addr, runID string, stats StatsProvider, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(custommw.Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		resp := statusResponse{RunID: runID, Now: time.Now().UTC()}
		if stats != nil {
			resp.Stats = stats.Stats()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("status encode failed", zap.Error(err))
		}
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in a background goroutine and logs a fatal listen failure.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
