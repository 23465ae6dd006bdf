// Package calendar submits extracted meeting events to Google Calendar.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jimdaga/aether/internal/intent"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	// DefaultTitle is used when the candidate has no title.
	DefaultTitle = "AETHER Meeting"

	// PrimaryCalendar is the calendar events are inserted into.
	PrimaryCalendar = "primary"

	// EventDuration is the fixed length of a synced event.
	EventDuration = time.Hour

	timeZone   = "UTC"
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrAuthRequired = errors.New("authentication required")
)

// BuildEvent converts a candidate into a provider event. Date and time are
// interpreted in UTC; the end is one hour after the start and rolls over to
// the next day when needed.
func BuildEvent(candidate intent.Event) (*gcal.Event, error) {
	date := strings.TrimSpace(candidate.Date)
	clock := strings.TrimSpace(candidate.Time)

	day, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidEvent, candidate.Date)
	}
	tod, err := time.ParseInLocation(timeLayout, clock, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidEvent, candidate.Time)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC)
	end := start.Add(EventDuration)

	title := strings.TrimSpace(candidate.Title)
	if title == "" {
		title = DefaultTitle
	}

	return &gcal.Event{
		Summary:     title,
		Description: candidate.Description,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: timeZone,
		},
	}, nil
}
