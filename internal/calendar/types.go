package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string

	// SendUpdates controls invitation emails: "all", "externalOnly" or "none".
	SendUpdates string
}

// EventSummary represents a simplified calendar event
type EventSummary struct {
	ID        string
	HTMLLink  string
	Summary   string
	Start     time.Time
	End       time.Time
	Attendees []string
	Status    string
}

// FreeBusyInfo represents availability information for a calendar
type FreeBusyInfo struct {
	Calendar string
	Busy     []TimeRange
	Errors   []string
}

// TimeRange represents a time range
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether r and o share any instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// toEventSummary converts a Google Calendar event to EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	summary := EventSummary{
		ID:       event.Id,
		HTMLLink: event.HtmlLink,
		Summary:  event.Summary,
		Status:   event.Status,
	}
	if event.Start != nil && event.Start.DateTime != "" {
		summary.Start, _ = time.Parse(time.RFC3339, event.Start.DateTime)
	}
	if event.End != nil && event.End.DateTime != "" {
		summary.End, _ = time.Parse(time.RFC3339, event.End.DateTime)
	}
	for _, a := range event.Attendees {
		summary.Attendees = append(summary.Attendees, a.Email)
	}
	return summary
}
