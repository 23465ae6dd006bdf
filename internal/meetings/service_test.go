package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/auth"
	"github.com/jimdaga/aether/internal/intent"
	"github.com/jimdaga/aether/internal/memory"
	"github.com/jimdaga/aether/internal/models"
	"github.com/jimdaga/aether/internal/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemories struct {
	added []string
	err   error
}

func (f *fakeMemories) Add(_ context.Context, text, meetingID, username string) (*models.Memory, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.added = append(f.added, username+"/"+meetingID+"/"+text)
	return &models.Memory{ID: "mem-1", Text: text}, nil
}

type fakeExtractor struct {
	refDate string
	events  []intent.Event
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, referenceDate string) []intent.Event {
	f.refDate = referenceDate
	if f.events == nil {
		return []intent.Event{}
	}
	return f.events
}

type fakePublisher struct {
	events []streams.MeetingProcessed
	err    error
}

func (f *fakePublisher) PublishMeetingProcessed(_ context.Context, evt streams.MeetingProcessed) (string, error) {
	f.events = append(f.events, evt)
	return "1-0", f.err
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

func TestProcess_StoresAndExtracts(t *testing.T) {
	mem := &fakeMemories{}
	ext := &fakeExtractor{events: []intent.Event{{Title: "Standup", Date: "2026-03-03", Time: "10:00"}}}
	pub := &fakePublisher{}
	p := NewProcessor(mem, ext, pub)
	p.now = fixedNow

	res, err := p.Process(context.Background(), "alice", Request{Text: "Standup tomorrow at ten", MeetingID: "m1"})
	require.NoError(t, err)

	assert.Equal(t, "Standup tomorrow at ten", res.Transcript)
	assert.Len(t, res.CalendarEvents, 1)
	assert.Equal(t, []string{"alice/m1/Standup tomorrow at ten"}, mem.added)
	assert.Equal(t, "Monday, March 02, 2026", ext.refDate)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "mem-1", pub.events[0].MemoryID)
	assert.Equal(t, 1, pub.events[0].EventCount)
}

func TestProcess_GhostModeSkipsMemory(t *testing.T) {
	mem := &fakeMemories{}
	pub := &fakePublisher{}
	p := NewProcessor(mem, &fakeExtractor{}, pub)

	res, err := p.Process(context.Background(), "alice", Request{Text: "off the record", MeetingID: "m2", GhostMode: true})
	require.NoError(t, err)

	assert.Empty(t, mem.added)
	assert.Empty(t, res.MemoryID)
	assert.NotNil(t, res.CalendarEvents)
	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].GhostMode)
}

func TestProcess_MemoryFailure(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProcessor(&fakeMemories{err: errors.New("db down")}, &fakeExtractor{}, pub)

	_, err := p.Process(context.Background(), "alice", Request{Text: "hello"})
	assert.ErrorContains(t, err, "failed to store meeting memory")
	assert.Empty(t, pub.events)
}

func TestProcess_PublishFailureIgnored(t *testing.T) {
	p := NewProcessor(&fakeMemories{}, &fakeExtractor{}, &fakePublisher{err: errors.New("redis down")})

	_, err := p.Process(context.Background(), "alice", Request{Text: "hello"})
	assert.NoError(t, err)
}

func TestProcess_NilPublisher(t *testing.T) {
	p := NewProcessor(&fakeMemories{}, &fakeExtractor{}, nil)

	_, err := p.Process(context.Background(), "alice", Request{Text: "hello"})
	assert.NoError(t, err)
}

func serve(p *Processor, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/process-transcript", func(c *gin.Context) { c.Set(auth.ContextUsername, "alice") }, HandleProcessTranscript(p))

	req := httptest.NewRequest(http.MethodPost, "/process-transcript", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleProcessTranscript(t *testing.T) {
	ext := &fakeExtractor{events: []intent.Event{{Title: "Standup", Date: "2026-03-03", Time: "10:00", Description: ""}}}
	w := serve(NewProcessor(&fakeMemories{}, ext, nil), `{"text":"Standup tomorrow","meeting_id":"m1","ghost_mode":false}`)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status         string         `json:"status"`
		Transcript     string         `json:"transcript"`
		CalendarEvents []intent.Event `json:"calendar_events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Standup tomorrow", body.Transcript)
	assert.Equal(t, "Standup", body.CalendarEvents[0].Title)
}

func TestHandleProcessTranscript_EmptyEventsIsList(t *testing.T) {
	w := serve(NewProcessor(&fakeMemories{}, &fakeExtractor{}, nil), `{"text":"","meeting_id":"m1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"calendar_events":[]`)
}

func TestHandleProcessTranscript_Errors(t *testing.T) {
	w := serve(NewProcessor(&fakeMemories{err: errors.New("db down")}, &fakeExtractor{}, nil), `{"text":"hi","meeting_id":"m1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"AI Processing failed"}`, w.Body.String())

	w = serve(NewProcessor(&fakeMemories{}, &fakeExtractor{}, nil), `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type memoryRows struct {
	rows []models.Memory
}

func (m *memoryRows) Create(_ context.Context, row *models.Memory) error {
	m.rows = append(m.rows, *row)
	return nil
}

func (m *memoryRows) ListByUsername(context.Context, string) ([]models.Memory, error) {
	return m.rows, nil
}

func (m *memoryRows) Nearest(context.Context, string, []float32, int) ([]models.Memory, error) {
	return nil, nil
}

func (m *memoryRows) CountByUsername(context.Context, string) (int64, error) {
	return int64(len(m.rows)), nil
}

type emptyRejectingEmbedder struct{}

func (emptyRejectingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("400 input must not be empty")
	}
	return []float32{1, 0, 0}, nil
}

func TestHandleProcessTranscript_EmptyTranscriptStored(t *testing.T) {
	rows := &memoryRows{}
	memories := memory.NewService(rows, emptyRejectingEmbedder{}, nil)
	w := serve(NewProcessor(memories, &fakeExtractor{}, nil), `{"text":"","meeting_id":"m1","ghost_mode":false}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","transcript":"","calendar_events":[]}`, w.Body.String())
	require.Len(t, rows.rows, 1)
	assert.Nil(t, rows.rows[0].Embedding)
	assert.Equal(t, "alice", rows.rows[0].Username)
}
