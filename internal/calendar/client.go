package calendar

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/teemow/meetgate/internal/instrumentation"
)

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Calendar client that authenticates through httpClient.
func NewClient(ctx context.Context, httpClient *http.Client, metrics *instrumentation.Metrics) (*Client, error) {
	return NewClientWithOptions(ctx, metrics, option.WithHTTPClient(httpClient))
}

// NewClientWithOptions creates a Calendar client from raw client options.
func NewClientWithOptions(ctx context.Context, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc, metrics: metrics}, nil
}

// QueryFreeBusy checks availability for calendars in a time range.
// Results are ordered by calendar id.
func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) (infos []FreeBusyInfo, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationFreeBusy)
	defer span.End()
	start := time.Now()
	defer func() { c.record(ctx, instrumentation.OperationFreeBusy, start, err, span) }()

	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   items,
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	for calID, cal := range result.Calendars {
		info := FreeBusyInfo{Calendar: calID}
		for _, busy := range cal.Busy {
			from, ferr := time.Parse(time.RFC3339, busy.Start)
			to, terr := time.Parse(time.RFC3339, busy.End)
			if ferr != nil || terr != nil {
				continue
			}
			info.Busy = append(info.Busy, TimeRange{Start: from, End: to})
		}
		for _, e := range cal.Errors {
			info.Errors = append(info.Errors, e.Reason)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Calendar < infos[j].Calendar })

	return infos, nil
}

// InsertEvent creates an event on calendarID.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (summary *EventSummary, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert)
	defer span.End()
	start := time.Now()
	defer func() { c.record(ctx, instrumentation.OperationInsert, start, err, span) }()

	if input.TimeZone == "" {
		input.TimeZone = "UTC"
	}
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}
	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	call := c.svc.Events.Insert(calendarID, event).Context(ctx)
	if input.SendUpdates != "" {
		call = call.SendUpdates(input.SendUpdates)
	}

	created, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s := toEventSummary(created)
	span.SetAttributes(instrumentation.EventAttr(s.ID)...)
	return &s, nil
}

// record finishes the span and records the Google API metric for one call.
func (c *Client) record(ctx context.Context, operation string, start time.Time, err error, span trace.Span) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
}
