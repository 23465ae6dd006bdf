package intent

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jimdaga/aether/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestReferenceDate(t *testing.T) {
	d := time.Date(2026, time.February, 27, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "Friday, February 27, 2026", ReferenceDate(d))
}

func TestExtract_EmptyTranscriptSkipsModel(t *testing.T) {
	llm := &fakeCompleter{reply: `[{"title":"x"}]`}
	e := NewExtractor(llm, prompts.MustLoad())

	events := e.Extract(context.Background(), "   ", "Friday, February 27, 2026")
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Zero(t, llm.calls)
}

func TestExtract_PassesReferenceDateAndTranscript(t *testing.T) {
	llm := &fakeCompleter{reply: `{"events":[{"title":"Standup","date":"2026-02-28","time":"09:30","description":"Daily sync"}]}`}
	e := NewExtractor(llm, prompts.MustLoad())

	events := e.Extract(context.Background(), "Standup tomorrow at 9:30", "Friday, February 27, 2026")

	require.Len(t, events, 1)
	assert.Equal(t, Event{Title: "Standup", Date: "2026-02-28", Time: "09:30", Description: "Daily sync"}, events[0])
	assert.Contains(t, llm.system, "Friday, February 27, 2026")
	assert.Contains(t, llm.user, "Standup tomorrow at 9:30")

	isoDate := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoTime := regexp.MustCompile(`^\d{2}:\d{2}$`)
	for _, ev := range events {
		assert.Regexp(t, isoDate, ev.Date)
		assert.Regexp(t, isoTime, ev.Time)
	}
}

func TestExtract_FailuresYieldEmptyList(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{name: "transport error", llm: &fakeCompleter{err: errors.New("timeout")}},
		{name: "not json", llm: &fakeCompleter{reply: "Sure! Here are your events"}},
		{name: "unknown shape", llm: &fakeCompleter{reply: `{"foo": "bar"}`}},
		{name: "scalar", llm: &fakeCompleter{reply: `42`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.llm, prompts.MustLoad())
			events := e.Extract(context.Background(), "some transcript", "Friday, February 27, 2026")
			assert.NotNil(t, events)
			assert.Empty(t, events)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Event
	}{
		{
			name: "bare list",
			raw:  `[{"title":"A","date":"2026-03-01","time":"10:00","description":"d"}]`,
			want: []Event{{Title: "A", Date: "2026-03-01", Time: "10:00", Description: "d"}},
		},
		{
			name: "wrapped under calendar_events",
			raw:  `{"calendar_events":[{"title":"B"}]}`,
			want: []Event{{Title: "B"}},
		},
		{
			name: "wrapped under meetings",
			raw:  `{"meetings":[{"title":"C","date":"2026-03-02"}]}`,
			want: []Event{{Title: "C", Date: "2026-03-02"}},
		},
		{
			name: "single object",
			raw:  `{"title":"Solo","date":"2026-03-03","time":"08:00","description":null}`,
			want: []Event{{Title: "Solo", Date: "2026-03-03", Time: "08:00"}},
		},
		{
			name: "code fenced",
			raw:  "```json\n[{\"title\":\"Fenced\"}]\n```",
			want: []Event{{Title: "Fenced"}},
		},
		{
			name: "non-object items dropped",
			raw:  `["nope", 3, {"title":"Kept"}]`,
			want: []Event{{Title: "Kept"}},
		},
		{
			name: "non-string fields stringified",
			raw:  `[{"title":"Num","time":1400,"description":true}]`,
			want: []Event{{Title: "Num", Time: "1400", Description: "true"}},
		},
		{
			name: "empty wrapper",
			raw:  `{"events":[]}`,
			want: []Event{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
