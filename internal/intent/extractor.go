// Package intent extracts calendar event candidates from meeting transcripts.
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jimdaga/aether/internal/llm"
	"github.com/jimdaga/aether/internal/prompts"
)

// ReferenceDateLayout renders the date the model resolves relative expressions against,
// e.g. "Friday, February 27, 2026".
const ReferenceDateLayout = "Monday, January 02, 2006"

// wrapperKeys are the object keys a model may nest the event list under, in priority order.
var wrapperKeys = []string{"events", "calendar_events", "meetings"}

// Event is a calendar event candidate. Date is YYYY-MM-DD and Time is HH:MM (24h)
// when the model follows instructions; neither is validated here.
type Event struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

// ChatCompleter is the JSON-mode language model call.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Extractor turns transcripts into event candidates.
type Extractor struct {
	llm     ChatCompleter
	prompts *prompts.Catalog
}

// NewExtractor creates an Extractor.
func NewExtractor(completer ChatCompleter, catalog *prompts.Catalog) *Extractor {
	return &Extractor{llm: completer, prompts: catalog}
}

// ReferenceDate formats t in ReferenceDateLayout.
func ReferenceDate(t time.Time) string {
	return t.Format(ReferenceDateLayout)
}

// Extract returns the scheduling intents found in transcript. It never fails:
// an empty transcript, a transport error or an unparseable reply all yield an empty list.
func (e *Extractor) Extract(ctx context.Context, transcript, referenceDate string) []Event {
	if strings.TrimSpace(transcript) == "" {
		return []Event{}
	}

	system, user, err := e.prompts.Render(prompts.Intent, map[string]string{
		"ReferenceDate": referenceDate,
		"Transcript":    transcript,
	})
	if err != nil {
		slog.Error("Failed to render intent prompt", "error", err)
		return []Event{}
	}

	raw, err := e.llm.CompleteJSON(ctx, system, user)
	if err != nil {
		slog.Error("Intent extraction failed", "error", err)
		return []Event{}
	}

	events, err := Normalize(raw)
	if err != nil {
		slog.Warn("Discarding unparseable intent response", "error", err)
		return []Event{}
	}

	slog.Debug("Extracted calendar intents", "count", len(events))
	return events
}

// Normalize decodes a model reply into events. Accepted shapes are a bare list,
// an object wrapping a list under one of wrapperKeys, or a single event object
// carrying a title or date. Anything else decodes to an empty list.
func Normalize(raw string) ([]Event, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(llm.StripCodeFences(raw))))
	decoder.UseNumber()

	var data any
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}

	var items []any
	switch v := data.(type) {
	case []any:
		items = v
	case map[string]any:
		items = unwrap(v)
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		events = append(events, Event{
			Title:       field(obj, "title"),
			Date:        field(obj, "date"),
			Time:        field(obj, "time"),
			Description: field(obj, "description"),
		})
	}

	return events, nil
}

func unwrap(obj map[string]any) []any {
	var wrapped []any
	for _, key := range wrapperKeys {
		if list, ok := obj[key].([]any); ok {
			wrapped = list
			break
		}
	}
	if len(wrapped) > 0 {
		return wrapped
	}

	_, hasTitle := obj["title"]
	_, hasDate := obj["date"]
	if hasTitle || hasDate {
		return []any{obj}
	}

	return wrapped
}

// field renders a scalar as a string; null and missing become "".
func field(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
