// Package memory stores meeting transcripts per user and retrieves them by
// listing or semantic similarity.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/aether/internal/models"
	"github.com/jimdaga/aether/internal/observability"
	"github.com/pgvector/pgvector-go"
)

// DefaultTopK is the number of search results when none is requested.
const DefaultTopK = 3

// ErrUsernameRequired guards against unscoped reads and writes.
var ErrUsernameRequired = errors.New("username is required")

// Metadata describes where a memory came from.
type Metadata struct {
	MeetingID string `json:"meeting_id"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
}

// Record is a memory as returned to clients.
type Record struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Store is the memory persistence.
type Store interface {
	Create(ctx context.Context, m *models.Memory) error
	ListByUsername(ctx context.Context, username string) ([]models.Memory, error)
	Nearest(ctx context.Context, username string, embedding []float32, k int) ([]models.Memory, error)
	CountByUsername(ctx context.Context, username string) (int64, error)
}

// Embedder turns text into a vector for similarity ranking.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service is the memory store API.
type Service struct {
	store    Store
	embedder Embedder
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	now      func() time.Time
}

// NewService creates a Service.
func NewService(store Store, embedder Embedder, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		metrics:  metrics,
		tracer:   observability.NewTracer(),
		now:      time.Now,
	}
}

// Add embeds text and appends it as a new memory owned by username.
func (s *Service) Add(ctx context.Context, text, meetingID, username string) (_ *models.Memory, err error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}

	ctx, span := s.tracer.StartMemorySpan(ctx, observability.SpanMemoryWrite, username)
	defer func() { observability.EndSpan(span, err) }()

	m := &models.Memory{
		ID:        uuid.NewString(),
		Username:  username,
		MeetingID: meetingID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}

	// Blank text is stored without an embedding and never matches a search.
	if strings.TrimSpace(text) != "" {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed memory: %w", err)
		}
		v := pgvector.NewVector(vec)
		m.Embedding = &v
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}

	s.metrics.RecordMemoryStored()
	return m, nil
}

// Search returns the topK memories most similar to query.
func (s *Service) Search(ctx context.Context, query, username string, topK int) (_ []Record, err error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	ctx, span := s.tracer.StartMemorySpan(ctx, observability.SpanMemorySearch, username)
	defer func() { observability.EndSpan(span, err) }()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	memories, err := s.store.Nearest(ctx, username, vec, topK)
	if err != nil {
		return nil, err
	}
	return toRecords(memories), nil
}

// GetAll returns every memory of username, newest first.
func (s *Service) GetAll(ctx context.Context, username string) ([]Record, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}

	memories, err := s.store.ListByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return toRecords(memories), nil
}

// Count returns how many memories username has.
func (s *Service) Count(ctx context.Context, username string) (int64, error) {
	if username == "" {
		return 0, ErrUsernameRequired
	}
	return s.store.CountByUsername(ctx, username)
}

func toRecords(memories []models.Memory) []Record {
	records := make([]Record, 0, len(memories))
	for _, m := range memories {
		records = append(records, Record{
			Text: m.Text,
			Metadata: Metadata{
				MeetingID: m.MeetingID,
				Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
				Username:  m.Username,
			},
		})
	}
	return records
}
