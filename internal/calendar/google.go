package calendar

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Inserter creates an event on the provider and returns its link.
type Inserter interface {
	Insert(ctx context.Context, ts oauth2.TokenSource, event *gcal.Event) (string, error)
}

// GoogleInserter talks to the Google Calendar API.
type GoogleInserter struct {
	opts []option.ClientOption
}

// NewGoogleInserter creates a GoogleInserter. Extra options are appended to
// every client, e.g. option.WithEndpoint in tests.
func NewGoogleInserter(opts ...option.ClientOption) *GoogleInserter {
	return &GoogleInserter{opts: opts}
}

// Insert adds event to the primary calendar.
func (g *GoogleInserter) Insert(ctx context.Context, ts oauth2.TokenSource, event *gcal.Event) (string, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create calendar client: %w", err)
	}

	created, err := svc.Events.Insert(PrimaryCalendar, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	return created.HtmlLink, nil
}
