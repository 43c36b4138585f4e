package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CheckpointVersion is bumped on incompatible snapshot layout changes.
const CheckpointVersion = 1

// ContextProgress tracks per-traversal-context completion for reporting and
// resume diagnostics.
type ContextProgress struct {
	PagesRouted int `json:"pages_routed"`
	Emitted     int `json:"emitted"`
}

// Checkpoint is a serializable snapshot of completed keys, pending frontier
// tasks, and per-context progress. Written atomically so a crash mid-session
// loses at most the in-flight batch.
type Checkpoint struct {
	Version   int                        `json:"version"`
	RunID     string                     `json:"run_id,omitempty"`
	SavedAt   time.Time                  `json:"saved_at"`
	Completed []string                   `json:"completed"`
	Pending   []CrawlTask                `json:"pending"`
	Progress  map[string]ContextProgress `json:"progress,omitempty"`
	Stats     SessionStats               `json:"stats"`
}

// FileCheckpointStore persists checkpoints as JSON via write-to-temp and
// rename, so readers never observe a torn snapshot.
type FileCheckpointStore struct {
	path   string
	logger *zap.Logger
}

// NewFileCheckpointStore returns a store writing to path.
func NewFileCheckpointStore(path string, logger *zap.Logger) *FileCheckpointStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCheckpointStore{path: path, logger: logger}
}

// Save writes the checkpoint atomically.
func (s *FileCheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("checkpoint save canceled: %w", err)
	}
	cp.Version = CheckpointVersion

	payload, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.json")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write checkpoint temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename checkpoint into place: %w", err)
	}

	s.logger.Debug("checkpoint saved",
		zap.String("path", s.path),
		zap.Int("completed", len(cp.Completed)),
		zap.Int("pending", len(cp.Pending)),
	)
	return nil
}

// Load reads the prior checkpoint. A missing file is not an error; ok is
// false and the session starts fresh.
func (s *FileCheckpointStore) Load(ctx context.Context) (Checkpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint load canceled: %w", err)
	}
	payload, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint %s: %w", s.path, err)
	}
	if cp.Version != CheckpointVersion {
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s has version %d, want %d", s.path, cp.Version, CheckpointVersion)
	}
	return cp, true, nil
}
