package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskCleanupAudio = "audio:cleanup"
	TaskSweepAudio   = "audio:sweep"
)

// CleanupPayload names one temp file to delete.
type CleanupPayload struct {
	Path string `json:"path"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues background tasks.
type Client struct {
	q      enqueuer
	closer func() error
}

// NewClient creates a Client connected to redisURL.
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	c := asynq.NewClient(opt)
	return &Client{q: c, closer: c.Close}, nil
}

// Close closes the Asynq client connection gracefully.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// ReportOrphan enqueues deletion of a temp file the request path could not remove.
// Retries back off, which covers files still held open on some platforms.
func (c *Client) ReportOrphan(ctx context.Context, path string) error {
	payload, err := json.Marshal(CleanupPayload{Path: path})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskCleanupAudio,
		payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Retention(24*time.Hour),
	)

	if _, err := c.q.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue audio cleanup: %w", err)
	}
	return nil
}
