// Package analytics derives recurring themes and summaries from stored meetings.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/jimdaga/aether/internal/llm"
	"github.com/jimdaga/aether/internal/memory"
	"github.com/jimdaga/aether/internal/prompts"
)

const (
	// MaxNotes caps how many memories are sent to the model.
	MaxNotes = 20

	// MaxThemes caps the returned theme list.
	MaxThemes = 5

	noteSeparator = "\n---\n"

	minScore = 1
	maxScore = 10
)

// ErrEmptyText is returned by Summarize for blank input.
var ErrEmptyText = errors.New("text is required")

// Theme is a recurring topic with an importance score from 1 to 10.
type Theme struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Result is the analytics payload.
type Result struct {
	Themes []Theme `json:"themes"`
}

// Fallback is returned whenever the model call or its output fails.
func Fallback() Result {
	return Result{Themes: []Theme{{Name: "Error processing themes", Value: 0}}}
}

// MemoryReader lists a user's memories.
type MemoryReader interface {
	GetAll(ctx context.Context, username string) ([]memory.Record, error)
}

// Completer is the language model used for themes and summaries.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
	Complete(ctx context.Context, system, user string) (string, error)
}

// Analyzer computes themes on demand; nothing is cached.
type Analyzer struct {
	memories  MemoryReader
	llm       Completer
	prompts   *prompts.Catalog
	validator *validator
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(memories MemoryReader, completer Completer, catalog *prompts.Catalog) (*Analyzer, error) {
	v, err := newValidator(themesSchema)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		memories:  memories,
		llm:       completer,
		prompts:   catalog,
		validator: v,
	}, nil
}

// Analyze returns the top themes across the user's meetings. Only a failure to
// read memories is returned as an error; model problems yield Fallback.
func (a *Analyzer) Analyze(ctx context.Context, username string) (Result, error) {
	records, err := a.memories.GetAll(ctx, username)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load memories: %w", err)
	}
	if len(records) == 0 {
		return Result{Themes: []Theme{}}, nil
	}

	if len(records) > MaxNotes {
		records = records[:MaxNotes]
	}
	notes := make([]string, 0, len(records))
	for _, r := range records {
		notes = append(notes, r.Text)
	}

	system, user, err := a.prompts.Render(prompts.Analytics, map[string]string{
		"Notes": strings.Join(notes, noteSeparator),
	})
	if err != nil {
		slog.Error("Failed to render analytics prompt", "error", err)
		return Fallback(), nil
	}

	raw, err := a.llm.CompleteJSON(ctx, system, user)
	if err != nil {
		slog.Error("Analytics model call failed", "username", username, "error", err)
		return Fallback(), nil
	}

	result, err := a.parse(raw)
	if err != nil {
		slog.Warn("Discarding invalid analytics response", "username", username, "error", err)
		return Fallback(), nil
	}

	return result, nil
}

func (a *Analyzer) parse(raw string) (Result, error) {
	cleaned := llm.StripCodeFences(raw)

	var instance interface{}
	if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
		return Result{}, fmt.Errorf("failed to decode themes: %w", err)
	}
	if err := a.validator.validate(instance); err != nil {
		return Result{}, err
	}

	var decoded struct {
		Themes []struct {
			Name  string  `json:"name"`
			Value float64 `json:"value"`
		} `json:"themes"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return Result{}, fmt.Errorf("failed to decode themes: %w", err)
	}

	themes := make([]Theme, 0, MaxThemes)
	for _, t := range decoded.Themes {
		if len(themes) == MaxThemes {
			break
		}
		themes = append(themes, Theme{Name: t.Name, Value: clampScore(t.Value)})
	}
	return Result{Themes: themes}, nil
}

// clampScore bounds v before converting so huge or NaN scores cannot overflow.
func clampScore(v float64) int {
	switch {
	case math.IsNaN(v), v < minScore:
		return minScore
	case v > maxScore:
		return maxScore
	}
	return int(math.Round(v))
}

// Summarize returns a short summary of a meeting transcript.
func (a *Analyzer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	system, user, err := a.prompts.Render(prompts.Summary, map[string]string{"Text": text})
	if err != nil {
		return "", err
	}

	summary, err := a.llm.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("failed to summarize: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
