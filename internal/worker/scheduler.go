package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/aether/internal/config"
	"github.com/jimdaga/aether/internal/logging"
)

// sweepTask is the periodic temp dir sweep. Unique keeps overlapping
// schedulers from queueing it twice.
func sweepTask() *asynq.Task {
	return asynq.NewTask(
		TaskSweepAudio,
		nil,
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(time.Hour),
		asynq.Unique(5*time.Minute),
	)
}

// StartScheduler creates and starts an Asynq Scheduler for periodic tasks.
// Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entryID, err := scheduler.Register(cfg.AudioSweepSchedule, sweepTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register sweep schedule: %w", err)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info(
		"Scheduler started",
		"schedule", cfg.AudioSweepSchedule,
		"max_age", cfg.AudioMaxAge,
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}
