package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/auth"
	"github.com/jimdaga/aether/internal/memory"
	"github.com/jimdaga/aether/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemories struct {
	records []memory.Record
	err     error
}

func (f *fakeMemories) GetAll(context.Context, string) ([]memory.Record, error) {
	return f.records, f.err
}

func (f *fakeMemories) Count(context.Context, string) (int64, error) {
	return int64(len(f.records)), f.err
}

type fakeLLM struct {
	reply    string
	text     string
	err      error
	calls    int
	lastUser string
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _, user string) (string, error) {
	f.calls++
	f.lastUser = user
	return f.reply, f.err
}

func (f *fakeLLM) Complete(_ context.Context, _, user string) (string, error) {
	f.calls++
	f.lastUser = user
	return f.text, f.err
}

func records(n int) []memory.Record {
	out := make([]memory.Record, n)
	for i := range out {
		out[i] = memory.Record{Text: fmt.Sprintf("meeting %02d", i)}
	}
	return out
}

func newTestAnalyzer(t *testing.T, mem MemoryReader, model Completer) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(mem, model, prompts.MustLoad())
	require.NoError(t, err)
	return a
}

func TestAnalyze_NoMemoriesSkipsModel(t *testing.T) {
	model := &fakeLLM{reply: `{"themes":[{"name":"x","value":3}]}`}
	a := newTestAnalyzer(t, &fakeMemories{}, model)

	result, err := a.Analyze(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, result.Themes)
	assert.Empty(t, result.Themes)
	assert.Zero(t, model.calls)
}

func TestAnalyze_UsesFirstTwentyNotes(t *testing.T) {
	model := &fakeLLM{reply: `{"themes":[{"name":"Hiring","value":8}]}`}
	a := newTestAnalyzer(t, &fakeMemories{records: records(25)}, model)

	result, err := a.Analyze(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []Theme{{Name: "Hiring", Value: 8}}, result.Themes)

	assert.Equal(t, 1, model.calls)
	assert.Contains(t, model.lastUser, "meeting 00\n---\nmeeting 01")
	assert.Contains(t, model.lastUser, "meeting 19")
	assert.NotContains(t, model.lastUser, "meeting 20")
}

func TestAnalyze_NormalizesThemes(t *testing.T) {
	reply := "```json\n" + `{"themes":[
		{"name":"A","value":0},
		{"name":"B","value":14},
		{"name":"C","value":6.6},
		{"name":"D","value":5},
		{"name":"E","value":4},
		{"name":"F","value":3}
	]}` + "\n```"
	a := newTestAnalyzer(t, &fakeMemories{records: records(3)}, &fakeLLM{reply: reply})

	result, err := a.Analyze(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []Theme{
		{Name: "A", Value: 1},
		{Name: "B", Value: 10},
		{Name: "C", Value: 7},
		{Name: "D", Value: 5},
		{Name: "E", Value: 4},
	}, result.Themes)
}

func TestAnalyze_FallbackOnBadOutput(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeLLM
	}{
		{name: "transport error", model: &fakeLLM{err: errors.New("502")}},
		{name: "not json", model: &fakeLLM{reply: "I think the themes are..."}},
		{name: "missing themes", model: &fakeLLM{reply: `{"topics":[]}`}},
		{name: "wrong value type", model: &fakeLLM{reply: `{"themes":[{"name":"A","value":"high"}]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, &fakeMemories{records: records(2)}, tt.model)

			result, err := a.Analyze(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, Fallback(), result)
		})
	}
}

func TestAnalyze_MemoryErrorPropagates(t *testing.T) {
	a := newTestAnalyzer(t, &fakeMemories{err: errors.New("db down")}, &fakeLLM{})

	_, err := a.Analyze(context.Background(), "alice")
	assert.ErrorContains(t, err, "failed to load memories")
}

func TestSummarize(t *testing.T) {
	model := &fakeLLM{text: "  Shipping moved to Friday.  "}
	a := newTestAnalyzer(t, &fakeMemories{}, model)

	summary, err := a.Summarize(context.Background(), "long transcript")
	require.NoError(t, err)
	assert.Equal(t, "Shipping moved to Friday.", summary)
	assert.Contains(t, model.lastUser, "Summarize this meeting transcript: long transcript")

	_, err = a.Summarize(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := &fakeMemories{records: records(2)}
	model := &fakeLLM{reply: `{"themes":[{"name":"Budget","value":9}]}`, text: "Short."}
	a := newTestAnalyzer(t, mem, model)

	r := gin.New()
	setUser := func(c *gin.Context) { c.Set(auth.ContextUsername, "alice") }
	r.GET("/api/analytics", setUser, HandleAnalytics(a, mem))
	r.POST("/api/summarize", setUser, HandleSummarize(a))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"themes":[{"name":"Budget","value":9}],"totalMeetings":2}`, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":"notes"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summary":"Short."}`, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{name: "in range rounds", in: 7.4, want: 7},
		{name: "half rounds up", in: 6.5, want: 7},
		{name: "above max", in: 11, want: 10},
		{name: "beyond int64", in: 1e19, want: 10},
		{name: "huge", in: 1e300, want: 10},
		{name: "positive infinity", in: math.Inf(1), want: 10},
		{name: "negative", in: -3, want: 1},
		{name: "very negative", in: -1e300, want: 1},
		{name: "not a number", in: math.NaN(), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampScore(tt.in))
		})
	}
}
