package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jimdaga/aether/internal/analytics"
	"github.com/jimdaga/aether/internal/archive"
	"github.com/jimdaga/aether/internal/auth"
	"github.com/jimdaga/aether/internal/calendar"
	"github.com/jimdaga/aether/internal/config"
	"github.com/jimdaga/aether/internal/crypto"
	"github.com/jimdaga/aether/internal/database"
	"github.com/jimdaga/aether/internal/intent"
	"github.com/jimdaga/aether/internal/llm"
	"github.com/jimdaga/aether/internal/logging"
	"github.com/jimdaga/aether/internal/meetings"
	"github.com/jimdaga/aether/internal/memory"
	"github.com/jimdaga/aether/internal/models"
	"github.com/jimdaga/aether/internal/observability"
	"github.com/jimdaga/aether/internal/prompts"
	"github.com/jimdaga/aether/internal/server"
	"github.com/jimdaga/aether/internal/streams"
	"github.com/jimdaga/aether/internal/transcription"
	"github.com/jimdaga/aether/internal/users"
	"github.com/jimdaga/aether/internal/worker"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "aether",
		Short:        "AETHER meeting assistant backend",
		SilenceUsage: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (and the embedded worker when enabled)",
			RunE:  func(cmd *cobra.Command, _ []string) error { return runServe(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Run the background worker and scheduler",
			RunE:  func(*cobra.Command, []string) error { return runWorker() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE:  func(*cobra.Command, []string) error { return runMigrate() },
		},
	)
	return root
}

func setup() *config.Config {
	cfg := config.Load()
	slog.SetDefault(logging.NewLogger(cfg.LogLevel, cfg.LogFormat))
	return cfg
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Init(cfg.DatabaseURL, database.DefaultPoolOptions())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}

func runMigrate() error {
	cfg := setup()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	return database.RunMigrations(db)
}

func runWorker() error {
	cfg := setup()
	metrics := observability.NewMetrics()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		return err
	}
	defer stopScheduler()

	return worker.Run(cfg, worker.NewSweeper(cfg.AudioDir(), cfg.AudioMaxAge, metrics))
}

func runServe(ctx context.Context) error {
	cfg := setup()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		return err
	}
	if cfg.SeedDevData && !cfg.IsProduction() {
		if err := database.SeedDevData(db); err != nil {
			slog.Warn("Failed to seed development data", "error", err)
		}
	}

	encryptor, err := newEncryptor(cfg)
	if err != nil {
		return err
	}
	models.SetEncryptor(encryptor)

	catalog, err := prompts.Load()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	llmClient := llm.NewClientFromConfig(cfg, metrics)
	userRepo := users.NewRepository(db)
	memories := memory.NewService(memory.NewRepository(db), llmClient, metrics)

	analyzer, err := analytics.NewAnalyzer(memories, llmClient, catalog)
	if err != nil {
		return err
	}

	var publisher meetings.EventPublisher
	if p, err := streams.NewPublisher(cfg.RedisURL); err != nil {
		slog.Warn("Meeting events disabled", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	sttOpts := []transcription.Option{transcription.WithMetrics(metrics)}
	if tasks, err := worker.NewClient(cfg.RedisURL); err != nil {
		slog.Warn("Orphan cleanup queue disabled", "error", err)
	} else {
		defer tasks.Close()
		sttOpts = append(sttOpts, transcription.WithOrphanReporter(tasks))
	}
	if cfg.ArchiveEnabled() {
		store, err := archive.New(ctx, archive.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return err
		}
		sttOpts = append(sttOpts, transcription.WithArchive(store))
		slog.Info("Audio archive enabled", "bucket", cfg.S3Bucket)
	}

	credentials := calendar.ChainCredentials{
		calendar.NewIdentityCredentials(userRepo, cfg.GoogleClientID, cfg.GoogleClientSecret),
		calendar.NewFileCredentials(cfg.GoogleTokenFile, cfg.GoogleCredentialsFile),
	}

	router := server.NewRouter(server.Deps{
		Logger:          slog.Default(),
		Metrics:         metrics,
		SessionSecret:   cfg.SessionSecret,
		Secure:          cfg.IsProduction(),
		FrontendURL:     cfg.FrontendURL,
		CalendarConnect: auth.InitProviders(cfg),
		Tokens:          auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Users:           userRepo,
		Transcription:   transcription.NewService(llmClient, cfg.AudioDir(), sttOpts...),
		Meetings:        meetings.NewProcessor(memories, intent.NewExtractor(llmClient, catalog), publisher),
		Memory:          memories,
		Analyzer:        analyzer,
		Calendar: calendar.NewService(credentials, calendar.NewGoogleInserter(),
			calendar.NewSyncRepository(db), metrics),
	})

	if cfg.WorkerEmbedded {
		stopWorker, stopScheduler := startEmbeddedWorker(cfg, metrics)
		defer stopWorker()
		defer stopScheduler()
	}

	return serveHTTP(ctx, ":"+cfg.Port, router)
}

func newEncryptor(cfg *config.Config) (*crypto.TokenEncryptor, error) {
	if cfg.EncryptionKey != "" {
		return crypto.NewTokenEncryptor(cfg.EncryptionKey)
	}
	if cfg.IsProduction() {
		return nil, errors.New("ENCRYPTION_KEY is required in production")
	}
	slog.Warn("ENCRYPTION_KEY not set, deriving token encryption key from SESSION_SECRET")
	return crypto.NewTokenEncryptorFromSecret(cfg.SessionSecret)
}

// startEmbeddedWorker runs the worker inside the API process. Redis problems
// only disable background cleanup.
func startEmbeddedWorker(cfg *config.Config, metrics *observability.Metrics) (stopWorker, stopScheduler func()) {
	noop := func() {}

	stopWorker, err := worker.Start(cfg, worker.NewSweeper(cfg.AudioDir(), cfg.AudioMaxAge, metrics))
	if err != nil {
		slog.Warn("Embedded worker disabled", "error", err)
		return noop, noop
	}

	stopScheduler, err = worker.StartScheduler(cfg)
	if err != nil {
		slog.Warn("Scheduler disabled", "error", err)
		return stopWorker, noop
	}
	return stopWorker, stopScheduler
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
