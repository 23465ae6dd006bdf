package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/aether/internal/logging"
	"github.com/jimdaga/aether/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweep_RemovesOnlyStaleUploads(t *testing.T) {
	dir := t.TempDir()
	stale := writeFile(t, dir, "active_session_a_audio.wav", 2*time.Hour)
	fresh := writeFile(t, dir, "active_session_b_audio.wav", time.Minute)
	other := writeFile(t, dir, "notes.txt", 3*time.Hour)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWith(reg, reg)
	s := NewSweeper(dir, time.Hour, metrics)

	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AudioCleanupTotal.WithLabelValues("swept")))
}

func TestSweep_MissingDir(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "gone"), time.Hour, nil)

	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSweep_SkipsUndeletable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "active_session_a_audio.wav", 2*time.Hour)

	s := NewSweeper(dir, time.Hour, nil)
	s.remove = func(string) error { return errors.New("file in use") }

	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(dir, time.Hour, nil)

	path := writeFile(t, dir, "active_session_x_clip.m4a", 0)
	require.NoError(t, s.Remove(path))
	assert.NoFileExists(t, path)

	// already gone
	assert.NoError(t, s.Remove(path))

	assert.ErrorIs(t, s.Remove(filepath.Join(dir, "notes.txt")), ErrOutsideTempDir)
	assert.ErrorIs(t, s.Remove("/etc/active_session_x"), ErrOutsideTempDir)
	assert.ErrorIs(t, s.Remove(filepath.Join(dir, "..", "active_session_x")), ErrOutsideTempDir)
}

func TestHandleCleanupAudio(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(dir, time.Hour, nil)
	handler := handleCleanupAudio(logging.NewLogger("error", "text"), s)

	path := writeFile(t, dir, "active_session_y_audio.wav", 0)
	payload, _ := json.Marshal(CleanupPayload{Path: path})
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskCleanupAudio, payload)))
	assert.NoFileExists(t, path)

	err := handler(context.Background(), asynq.NewTask(TaskCleanupAudio, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ = json.Marshal(CleanupPayload{Path: "/etc/passwd"})
	err = handler(context.Background(), asynq.NewTask(TaskCleanupAudio, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSweepAudio(t *testing.T) {
	dir := t.TempDir()
	stale := writeFile(t, dir, "active_session_z_audio.wav", 2*time.Hour)

	handler := handleSweepAudio(logging.NewLogger("error", "text"), NewSweeper(dir, time.Hour, nil))
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskSweepAudio, nil)))
	assert.NoFileExists(t, stale)
}

type fakeEnqueuer struct {
	task *asynq.Task
	err  error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.task = task
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func TestClient_ReportOrphan(t *testing.T) {
	q := &fakeEnqueuer{}
	c := &Client{q: q}

	require.NoError(t, c.ReportOrphan(context.Background(), "/tmp/active_session_a_audio.wav"))
	assert.Equal(t, TaskCleanupAudio, q.task.Type())

	var payload CleanupPayload
	require.NoError(t, json.Unmarshal(q.task.Payload(), &payload))
	assert.Equal(t, "/tmp/active_session_a_audio.wav", payload.Path)

	c = &Client{q: &fakeEnqueuer{err: errors.New("redis down")}}
	assert.ErrorContains(t, c.ReportOrphan(context.Background(), "/tmp/x"), "failed to enqueue audio cleanup")
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient("://nope")
	assert.Error(t, err)
}

func TestSweepTask(t *testing.T) {
	task := sweepTask()
	assert.Equal(t, TaskSweepAudio, task.Type())
	assert.Empty(t, task.Payload())
}
