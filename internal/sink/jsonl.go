// Package sink provides record sinks: append-only JSONL files, Postgres, and
// a no-op for dry runs. A sink must only return nil from Emit once the record
// is durably handed over, because the session marks the task complete on that
// signal.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/crawler"
)

// JSONL appends one JSON document per record to a session-scoped file.
type JSONL struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	logger *zap.Logger
}

// NewJSONL creates albums_<timestamp>.jsonl under dir.
func NewJSONL(dir string, now time.Time, logger *zap.Logger) (*JSONL, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("albums_%s.jsonl", now.UTC().Format("20060102T150405Z")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	logger.Info("jsonl sink open", zap.String("path", path))
	return &JSONL{file: file, enc: json.NewEncoder(file), logger: logger}, nil
}

// Emit appends the record and syncs so a crash cannot lose an acknowledged
// record.
func (s *JSONL) Emit(_ context.Context, rec crawler.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Key(), err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync output file: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Path returns the output file location.
func (s *JSONL) Path() string {
	return s.file.Name()
}
