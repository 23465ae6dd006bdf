package meetings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/aether/internal/intent"
	"github.com/jimdaga/aether/internal/models"
	"github.com/jimdaga/aether/internal/streams"
)

// MemoryWriter persists meeting transcripts.
type MemoryWriter interface {
	Add(ctx context.Context, text, meetingID, username string) (*models.Memory, error)
}

// IntentExtractor finds scheduling intents in a transcript.
type IntentExtractor interface {
	Extract(ctx context.Context, transcript, referenceDate string) []intent.Event
}

// EventPublisher announces processed meetings.
type EventPublisher interface {
	PublishMeetingProcessed(ctx context.Context, evt streams.MeetingProcessed) (string, error)
}

// Request is a finished meeting transcript.
type Request struct {
	Text      string `json:"text"`
	MeetingID string `json:"meeting_id"`
	GhostMode bool   `json:"ghost_mode"`
}

// Result is what processing produced for one transcript.
type Result struct {
	Transcript     string
	CalendarEvents []intent.Event
	MemoryID       string
}

// Processor stores a transcript as memory and extracts its calendar intents.
type Processor struct {
	memories  MemoryWriter
	extractor IntentExtractor
	publisher EventPublisher
	now       func() time.Time
}

// NewProcessor creates a Processor. publisher may be nil.
func NewProcessor(memories MemoryWriter, extractor IntentExtractor, publisher EventPublisher) *Processor {
	return &Processor{
		memories:  memories,
		extractor: extractor,
		publisher: publisher,
		now:       time.Now,
	}
}

// Process handles one transcript for username. Ghost mode skips persistence.
// Only a failed memory write is an error; extraction degrades to no events.
func (p *Processor) Process(ctx context.Context, username string, req Request) (*Result, error) {
	res := &Result{Transcript: req.Text}

	if !req.GhostMode {
		mem, err := p.memories.Add(ctx, req.Text, req.MeetingID, username)
		if err != nil {
			return nil, fmt.Errorf("failed to store meeting memory: %w", err)
		}
		res.MemoryID = mem.ID
	}

	res.CalendarEvents = p.extractor.Extract(ctx, req.Text, intent.ReferenceDate(p.now()))

	p.publish(ctx, username, req, res)
	return res, nil
}

func (p *Processor) publish(ctx context.Context, username string, req Request, res *Result) {
	if p.publisher == nil {
		return
	}
	_, err := p.publisher.PublishMeetingProcessed(ctx, streams.MeetingProcessed{
		MeetingID:   req.MeetingID,
		Username:    username,
		MemoryID:    res.MemoryID,
		EventCount:  len(res.CalendarEvents),
		GhostMode:   req.GhostMode,
		ProcessedAt: p.now().Unix(),
	})
	if err != nil {
		slog.Warn("Failed to publish meeting event", "meeting_id", req.MeetingID, "error", err)
	}
}
