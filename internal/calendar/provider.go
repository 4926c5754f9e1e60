package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/logging"
)

// SuggestRequest asks for free slots.
type SuggestRequest struct {
	WindowDays       int
	SlotDurationMins int
	// DayStart and DayEnd are "HH:MM" in the provider's timezone. Empty
	// values fall back to the provider defaults.
	DayStart  string
	DayEnd    string
	OwnerOnly bool
}

// BookRequest asks to put a meeting on the owner's calendar.
type BookRequest struct {
	Slot        job.Slot
	Attendees   []string
	Title       string
	Description string
}

// AvailabilityProvider suggests free slots.
type AvailabilityProvider interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]job.Slot, error)
}

// SchedulingProvider books meetings.
type SchedulingProvider interface {
	Book(ctx context.Context, req BookRequest) (*job.Booking, error)
}

// Provider is both halves of the calendar collaborator.
type Provider interface {
	AvailabilityProvider
	SchedulingProvider
}

// Service is the subset of the Google client the provider needs.
type Service interface {
	QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error)
	InsertEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error)
}

// Settings configures a provider.
type Settings struct {
	// OwnerCalendar receives bookings and is always consulted for busy time.
	OwnerCalendar string
	// SecondaryCalendar is also consulted unless a request is owner-only.
	SecondaryCalendar string
	TimeZone          string
	DayStart          string
	DayEnd            string
	SendUpdates       string
}

// DefaultSettings returns the built-in provider settings.
func DefaultSettings() Settings {
	return Settings{
		OwnerCalendar: "primary",
		TimeZone:      "UTC",
		DayStart:      "09:00",
		DayEnd:        "17:00",
		SendUpdates:   "all",
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.OwnerCalendar == "" {
		s.OwnerCalendar = d.OwnerCalendar
	}
	if s.TimeZone == "" {
		s.TimeZone = d.TimeZone
	}
	if s.DayStart == "" {
		s.DayStart = d.DayStart
	}
	if s.DayEnd == "" {
		s.DayEnd = d.DayEnd
	}
	return s
}

// window builds the suggestion window for req.
func (s Settings) window(loc *time.Location, req SuggestRequest) (Window, error) {
	dayStart, dayEnd := req.DayStart, req.DayEnd
	if dayStart == "" {
		dayStart = s.DayStart
	}
	if dayEnd == "" {
		dayEnd = s.DayEnd
	}
	from, err := ParseClock(dayStart)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", job.ErrInvalidInput, err)
	}
	to, err := ParseClock(dayEnd)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", job.ErrInvalidInput, err)
	}
	w := Window{
		Location:     loc,
		DayStart:     from,
		DayEnd:       to,
		Days:         req.WindowDays,
		SlotDuration: time.Duration(req.SlotDurationMins) * time.Minute,
	}
	if err := w.Validate(); err != nil {
		return Window{}, fmt.Errorf("%w: %v", job.ErrInvalidInput, err)
	}
	return w, nil
}

// GoogleProvider implements Provider on top of Google Calendar.
type GoogleProvider struct {
	svc      Service
	settings Settings
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewGoogleProvider creates a provider backed by svc.
func NewGoogleProvider(svc Service, settings Settings, logger *slog.Logger) (*GoogleProvider, error) {
	settings = settings.withDefaults()
	loc, err := time.LoadLocation(settings.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", settings.TimeZone, err)
	}
	return &GoogleProvider{
		svc:      svc,
		settings: settings,
		loc:      loc,
		logger:   logging.WithComponent(logger, "calendar"),
		now:      time.Now,
	}, nil
}

// Suggest implements AvailabilityProvider.
func (p *GoogleProvider) Suggest(ctx context.Context, req SuggestRequest) ([]job.Slot, error) {
	w, err := p.settings.window(p.loc, req)
	if err != nil {
		return nil, err
	}
	now := p.now()
	span := w.Range(now)

	calendars := []string{p.settings.OwnerCalendar}
	if !req.OwnerOnly && p.settings.SecondaryCalendar != "" {
		calendars = append(calendars, p.settings.SecondaryCalendar)
	}

	infos, err := p.svc.QueryFreeBusy(ctx, span.Start, span.End, calendars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", job.ErrProvider, err)
	}

	var busy []TimeRange
	for _, info := range infos {
		if len(info.Errors) > 0 {
			p.logger.Warn("freebusy reported calendar errors", "calendar", info.Calendar, "errors", info.Errors)
		}
		busy = append(busy, info.Busy...)
	}

	slots := SuggestSlots(busy, w, now)
	p.logger.Debug("suggested slots", "calendars", len(calendars), "busy", len(busy), "slots", len(slots))
	return slots, nil
}

// Book implements SchedulingProvider.
func (p *GoogleProvider) Book(ctx context.Context, req BookRequest) (*job.Booking, error) {
	if !req.Slot.End.After(req.Slot.Start) {
		return nil, fmt.Errorf("%w: slot end must be after start", job.ErrInvalidInput)
	}
	ev, err := p.svc.InsertEvent(ctx, p.settings.OwnerCalendar, EventInput{
		Summary:     req.Title,
		Description: req.Description,
		Start:       req.Slot.Start,
		End:         req.Slot.End,
		TimeZone:    p.settings.TimeZone,
		Attendees:   req.Attendees,
		SendUpdates: p.settings.SendUpdates,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", job.ErrProvider, err)
	}
	return &job.Booking{
		EventID:  ev.ID,
		HTMLLink: ev.HTMLLink,
		Slot:     req.Slot,
		BookedAt: p.now(),
	}, nil
}

// DryRunProvider suggests slots from an empty calendar and records bookings
// in memory instead of creating events.
type DryRunProvider struct {
	settings Settings
	loc      *time.Location
	now      func() time.Time

	mu       sync.Mutex
	bookings []BookRequest
}

// NewDryRunProvider creates a DryRunProvider.
func NewDryRunProvider(settings Settings) (*DryRunProvider, error) {
	settings = settings.withDefaults()
	loc, err := time.LoadLocation(settings.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", settings.TimeZone, err)
	}
	return &DryRunProvider{settings: settings, loc: loc, now: time.Now}, nil
}

// Suggest implements AvailabilityProvider.
func (p *DryRunProvider) Suggest(ctx context.Context, req SuggestRequest) ([]job.Slot, error) {
	w, err := p.settings.window(p.loc, req)
	if err != nil {
		return nil, err
	}
	return SuggestSlots(nil, w, p.now()), nil
}

// Book implements SchedulingProvider.
func (p *DryRunProvider) Book(ctx context.Context, req BookRequest) (*job.Booking, error) {
	if !req.Slot.End.After(req.Slot.Start) {
		return nil, fmt.Errorf("%w: slot end must be after start", job.ErrInvalidInput)
	}
	p.mu.Lock()
	p.bookings = append(p.bookings, req)
	p.mu.Unlock()

	id := "dryrun-" + uuid.New().String()
	return &job.Booking{
		EventID:  id,
		HTMLLink: "about:blank#" + id,
		Slot:     req.Slot,
		BookedAt: p.now(),
	}, nil
}

// Bookings returns the booking requests seen so far.
func (p *DryRunProvider) Bookings() []BookRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]BookRequest(nil), p.bookings...)
}
