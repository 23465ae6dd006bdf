package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jimdaga/aether/internal/intent"
	"github.com/jimdaga/aether/internal/models"
	"github.com/jimdaga/aether/internal/observability"
	"golang.org/x/oauth2"
)

// SyncRecorder keeps the submission audit trail.
type SyncRecorder interface {
	Start(ctx context.Context, username string, event any) (uint, error)
	Finish(ctx context.Context, id uint, status, link, errMsg string) error
}

// Service submits event candidates for a user.
type Service struct {
	credentials CredentialSource
	inserter    Inserter
	recorder    SyncRecorder
	metrics     *observability.Metrics
	tracer      *observability.Tracer
}

// NewService creates a Service. recorder and metrics may be nil.
func NewService(credentials CredentialSource, inserter Inserter, recorder SyncRecorder, metrics *observability.Metrics) *Service {
	return &Service{
		credentials: credentials,
		inserter:    inserter,
		recorder:    recorder,
		metrics:     metrics,
		tracer:      observability.NewTracer(),
	}
}

// Sync submits candidate to the user's primary calendar and returns the event link.
// It fails with ErrInvalidEvent or ErrAuthRequired before any network access.
func (s *Service) Sync(ctx context.Context, username string, candidate intent.Event) (link string, err error) {
	event, err := BuildEvent(candidate)
	if err != nil {
		return "", err
	}

	ctx, span := s.tracer.StartCalendarSpan(ctx, username)
	defer func() { observability.EndSpan(span, err) }()

	syncID := s.start(ctx, username, event)

	ts, err := s.credentials.TokenSource(ctx, username)
	if err != nil {
		s.finish(ctx, syncID, "", err)
		return "", err
	}

	link, err = s.inserter.Insert(ctx, ts, event)
	if err != nil {
		// A refresh token the provider rejects needs a new consent.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			err = fmt.Errorf("%w: %v", ErrAuthRequired, err)
		}
		s.finish(ctx, syncID, "", err)
		return "", err
	}

	s.finish(ctx, syncID, link, nil)
	slog.Info("Calendar event created", "username", username, "title", event.Summary)
	return link, nil
}

func (s *Service) start(ctx context.Context, username string, event any) uint {
	if s.recorder == nil {
		return 0
	}
	id, err := s.recorder.Start(ctx, username, event)
	if err != nil {
		slog.Warn("Failed to record calendar sync", "username", username, "error", err)
		return 0
	}
	return id
}

func (s *Service) finish(ctx context.Context, id uint, link string, syncErr error) {
	status := models.CalendarSyncStatusCompleted
	metricStatus := observability.StatusSuccess
	errMsg := ""
	if syncErr != nil {
		status = models.CalendarSyncStatusFailed
		metricStatus = observability.StatusError
		errMsg = syncErr.Error()
	}
	s.metrics.RecordCalendarSync(metricStatus)

	if s.recorder == nil || id == 0 {
		return
	}
	if err := s.recorder.Finish(ctx, id, status, link, errMsg); err != nil {
		slog.Warn("Failed to update calendar sync", "id", id, "error", err)
	}
}
