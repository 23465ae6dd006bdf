// Package transcription turns uploaded meeting audio into text.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jimdaga/aether/internal/observability"
)

// UnintelligibleSentinel is returned when the speech-to-text model hears nothing.
const UnintelligibleSentinel = "[Unintelligible Audio or Silence]"

// TempFilePrefix marks in-flight uploads in the temp directory.
const TempFilePrefix = "active_session_"

const defaultFilename = "audio.wav"

// ErrEmptyUpload is returned for a zero-byte upload.
var ErrEmptyUpload = errors.New("empty audio upload")

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

// Archiver keeps a durable copy of the raw upload.
type Archiver interface {
	PutAudio(ctx context.Context, username, filename string, body io.Reader) (string, error)
}

// OrphanReporter is told about temp files that could not be removed.
type OrphanReporter interface {
	ReportOrphan(ctx context.Context, path string) error
}

// Service writes uploads to a uniquely named temp file, transcribes them and
// removes the file on every exit path.
type Service struct {
	stt     Transcriber
	tempDir string
	archive Archiver
	orphans OrphanReporter
	metrics *observability.Metrics
	remove  func(string) error
}

// Option configures optional collaborators.
type Option func(*Service)

// WithArchive copies uploads to a before transcription.
func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

// WithOrphanReporter hands undeletable temp files to r.
func WithOrphanReporter(r OrphanReporter) Option {
	return func(s *Service) { s.orphans = r }
}

// WithMetrics records cleanup outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service writing into tempDir.
func NewService(stt Transcriber, tempDir string, opts ...Option) *Service {
	s := &Service{
		stt:     stt,
		tempDir: tempDir,
		remove:  os.Remove,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TempFileName returns the temp file name for an upload.
func TempFileName(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		base = defaultFilename
	}
	return fmt.Sprintf("%s%s_%s", TempFilePrefix, uuid.NewString(), base)
}

// Transcribe stores body temporarily and returns the recognized text, or
// UnintelligibleSentinel when the model returns nothing.
func (s *Service) Transcribe(ctx context.Context, username string, body io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.tempDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	path := filepath.Join(s.tempDir, TempFileName(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer s.cleanup(ctx, path)

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyUpload
	}

	if s.archive != nil {
		s.archiveCopy(ctx, username, filename, path)
	}

	text, err := s.stt.TranscribeFile(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return UnintelligibleSentinel, nil
	}
	return text, nil
}

// archiveCopy uploads the temp file. Failures are logged only.
func (s *Service) archiveCopy(ctx context.Context, username, filename, path string) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Audio archive skipped", "error", err)
		return
	}
	defer f.Close()

	key, err := s.archive.PutAudio(ctx, username, filename, f)
	if err != nil {
		slog.Warn("Audio archive failed", "username", username, "error", err)
		return
	}
	slog.Info("Audio archived", "username", username, "key", key)
}

func (s *Service) cleanup(ctx context.Context, path string) {
	err := s.remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		s.metrics.RecordAudioCleanup("removed")
		return
	}

	slog.Warn("Failed to remove temp audio", "path", path, "error", err)
	s.metrics.RecordAudioCleanup("failed")

	if s.orphans == nil {
		return
	}
	if err := s.orphans.ReportOrphan(context.WithoutCancel(ctx), path); err != nil {
		slog.Error("Failed to schedule orphan cleanup", "path", path, "error", err)
	}
}
