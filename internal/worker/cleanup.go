package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jimdaga/aether/internal/observability"
	"github.com/jimdaga/aether/internal/transcription"
)

// ErrOutsideTempDir rejects cleanup requests for files the service does not own.
var ErrOutsideTempDir = errors.New("path is not an upload temp file")

// Sweeper deletes leftover upload temp files.
type Sweeper struct {
	dir     string
	maxAge  time.Duration
	metrics *observability.Metrics
	now     func() time.Time
	remove  func(string) error
}

// NewSweeper creates a Sweeper for dir. Files younger than maxAge are left alone
// by Sweep since a request may still be using them.
func NewSweeper(dir string, maxAge time.Duration, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		dir:     dir,
		maxAge:  maxAge,
		metrics: metrics,
		now:     time.Now,
		remove:  os.Remove,
	}
}

// Remove deletes one temp file. A file that is already gone counts as removed.
func (s *Sweeper) Remove(path string) error {
	if !s.owns(path) {
		return fmt.Errorf("%w: %s", ErrOutsideTempDir, path)
	}

	err := s.remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.metrics.RecordAudioCleanup("failed")
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	s.metrics.RecordAudioCleanup("swept")
	return nil
}

// Sweep removes every stale temp file in the directory and returns how many went.
// Failures on single files are logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read temp dir: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), transcription.TempFilePrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if err := s.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			slog.Warn("Failed to sweep temp file", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Sweeper) owns(path string) bool {
	clean := filepath.Clean(path)
	return filepath.Dir(clean) == filepath.Clean(s.dir) &&
		strings.HasPrefix(filepath.Base(clean), transcription.TempFilePrefix)
}
