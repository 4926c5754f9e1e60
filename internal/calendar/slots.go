package calendar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/meetgate/internal/job"
)

// MaxSuggestedSlots caps the number of slots SuggestSlots returns.
const MaxSuggestedSlots = 10

// Window describes where suggested slots may fall.
type Window struct {
	// Location is the timezone the day window is interpreted in.
	Location *time.Location
	// DayStart and DayEnd are offsets from local midnight.
	DayStart time.Duration
	DayEnd   time.Duration
	// Days is how many calendar days, starting with today, are searched.
	Days int
	// SlotDuration is both the slot length and the step between candidates.
	SlotDuration time.Duration
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// Validate checks the window is usable.
func (w Window) Validate() error {
	switch {
	case w.SlotDuration <= 0:
		return fmt.Errorf("slot duration must be positive")
	case w.Days <= 0:
		return fmt.Errorf("window must cover at least one day")
	case w.DayEnd <= w.DayStart:
		return fmt.Errorf("day window end must be after its start")
	case w.DayEnd-w.DayStart < w.SlotDuration:
		return fmt.Errorf("day window is shorter than one slot")
	}
	return nil
}

// Range returns the overall interval the window covers, starting at the
// local midnight of now's day.
func (w Window) Range(now time.Time) TimeRange {
	loc := w.location()
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return TimeRange{Start: midnight, End: midnight.AddDate(0, 0, w.Days)}
}

func (w Window) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// MergeBusy sorts busy intervals and unions the overlapping or touching ones.
func MergeBusy(busy []TimeRange) []TimeRange {
	if len(busy) == 0 {
		return nil
	}
	sorted := make([]TimeRange, 0, len(busy))
	for _, b := range busy {
		if b.End.After(b.Start) {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var merged []TimeRange
	for _, b := range sorted {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			if b.End.After(merged[n-1].End) {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// SuggestSlots subtracts busy from the daily window and returns free slots
// oldest first. Slots starting at or before now are skipped and at most
// MaxSuggestedSlots are returned.
func SuggestSlots(busy []TimeRange, w Window, now time.Time) []job.Slot {
	if w.Validate() != nil {
		return nil
	}
	loc := w.location()
	merged := MergeBusy(busy)
	day := w.Range(now).Start

	var slots []job.Slot
	for d := 0; d < w.Days; d++ {
		date := day.AddDate(0, 0, d)
		open := wallClock(date, w.DayStart)
		closeAt := wallClock(date, w.DayEnd)

		for start := open; !start.Add(w.SlotDuration).After(closeAt); start = start.Add(w.SlotDuration) {
			if !start.After(now) {
				continue
			}
			candidate := TimeRange{Start: start, End: start.Add(w.SlotDuration)}
			if overlapsAny(candidate, merged) {
				continue
			}
			slots = append(slots, job.Slot{Start: candidate.Start.In(loc), End: candidate.End.In(loc)})
			if len(slots) == MaxSuggestedSlots {
				return slots
			}
		}
	}
	return slots
}

// wallClock returns the instant on date's calendar day at local clock time
// clock. Adding clock to midnight drifts by an hour on DST change days.
func wallClock(date time.Time, clock time.Duration) time.Time {
	h := int(clock / time.Hour)
	m := int((clock % time.Hour) / time.Minute)
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, date.Location())
}

func overlapsAny(r TimeRange, merged []TimeRange) bool {
	i := sort.Search(len(merged), func(i int) bool { return merged[i].End.After(r.Start) })
	return i < len(merged) && merged[i].Overlaps(r)
}
