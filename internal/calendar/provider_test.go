package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/job"
)

type fakeService struct {
	busy      map[string][]TimeRange
	queried   []string
	inserted  []EventInput
	calendar  string
	insertErr error
	queryErr  error
}

func (f *fakeService) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	f.queried = calendarIDs
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var infos []FreeBusyInfo
	for _, id := range calendarIDs {
		infos = append(infos, FreeBusyInfo{Calendar: id, Busy: f.busy[id]})
	}
	return infos, nil
}

func (f *fakeService) InsertEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.calendar = calendarID
	f.inserted = append(f.inserted, input)
	return &EventSummary{ID: "evt-1", HTMLLink: "https://calendar.example/evt-1"}, nil
}

func newTestProvider(t *testing.T, svc Service, settings Settings) *GoogleProvider {
	t.Helper()
	p, err := NewGoogleProvider(svc, settings, nil)
	require.NoError(t, err)
	p.now = func() time.Time { return at(8, 0) }
	return p
}

func TestGoogleProvider_SuggestUnionsCalendars(t *testing.T) {
	svc := &fakeService{busy: map[string][]TimeRange{
		"primary": {{Start: at(9, 0), End: at(9, 30)}},
		"team":    {{Start: at(9, 30), End: at(10, 0)}},
	}}
	p := newTestProvider(t, svc, Settings{SecondaryCalendar: "team"})

	slots, err := p.Suggest(context.Background(), SuggestRequest{WindowDays: 1, SlotDurationMins: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{"primary", "team"}, svc.queried)
	require.NotEmpty(t, slots)
	assert.Equal(t, at(10, 0), slots[0].Start)
}

func TestGoogleProvider_SuggestOwnerOnly(t *testing.T) {
	svc := &fakeService{busy: map[string][]TimeRange{
		"team": {{Start: at(9, 0), End: at(17, 0)}},
	}}
	p := newTestProvider(t, svc, Settings{SecondaryCalendar: "team"})

	slots, err := p.Suggest(context.Background(), SuggestRequest{WindowDays: 1, SlotDurationMins: 30, OwnerOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"primary"}, svc.queried)
	require.NotEmpty(t, slots)
	assert.Equal(t, at(9, 0), slots[0].Start)
}

func TestGoogleProvider_SuggestErrors(t *testing.T) {
	svc := &fakeService{queryErr: errors.New("quota exceeded")}
	p := newTestProvider(t, svc, Settings{})

	_, err := p.Suggest(context.Background(), SuggestRequest{WindowDays: 1, SlotDurationMins: 30})
	assert.ErrorIs(t, err, job.ErrProvider)

	_, err = p.Suggest(context.Background(), SuggestRequest{WindowDays: 1, SlotDurationMins: 30, DayStart: "nine"})
	assert.ErrorIs(t, err, job.ErrInvalidInput)

	_, err = p.Suggest(context.Background(), SuggestRequest{WindowDays: 0, SlotDurationMins: 30})
	assert.ErrorIs(t, err, job.ErrInvalidInput)
}

func TestGoogleProvider_Book(t *testing.T) {
	svc := &fakeService{}
	p := newTestProvider(t, svc, Settings{TimeZone: "Europe/Berlin"})

	slot := job.Slot{Start: at(10, 0), End: at(10, 30)}
	b, err := p.Book(context.Background(), BookRequest{
		Slot:        slot,
		Attendees:   []string{"a@example.com"},
		Title:       "Q4 strategy",
		Description: "briefing",
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", b.EventID)
	assert.Equal(t, "https://calendar.example/evt-1", b.HTMLLink)
	assert.Equal(t, slot, b.Slot)

	assert.Equal(t, "primary", svc.calendar)
	require.Len(t, svc.inserted, 1)
	assert.Equal(t, "Europe/Berlin", svc.inserted[0].TimeZone)
	assert.Equal(t, "all", svc.inserted[0].SendUpdates)
	assert.Equal(t, "briefing", svc.inserted[0].Description)
}

func TestGoogleProvider_BookErrors(t *testing.T) {
	p := newTestProvider(t, &fakeService{insertErr: errors.New("403")}, Settings{})
	_, err := p.Book(context.Background(), BookRequest{Slot: job.Slot{Start: at(10, 0), End: at(10, 30)}})
	assert.ErrorIs(t, err, job.ErrProvider)

	_, err = p.Book(context.Background(), BookRequest{Slot: job.Slot{Start: at(10, 0), End: at(10, 0)}})
	assert.ErrorIs(t, err, job.ErrInvalidInput)
}

func TestNewGoogleProvider_BadTimezone(t *testing.T) {
	_, err := NewGoogleProvider(&fakeService{}, Settings{TimeZone: "Mars/Olympus"}, nil)
	assert.Error(t, err)
}

func TestDryRunProvider(t *testing.T) {
	p, err := NewDryRunProvider(Settings{})
	require.NoError(t, err)
	p.now = func() time.Time { return at(8, 0) }

	slots, err := p.Suggest(context.Background(), SuggestRequest{WindowDays: 1, SlotDurationMins: 30})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, at(9, 0), slots[0].Start)

	b, err := p.Book(context.Background(), BookRequest{Slot: slots[0], Title: "sync"})
	require.NoError(t, err)
	assert.Contains(t, b.EventID, "dryrun-")
	assert.Len(t, p.Bookings(), 1)
}
