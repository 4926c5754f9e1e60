package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/logging"
)

// SubmitDetails is the free-form submission path: form holds the details
// object as decoded from JSON.
func (o *Orchestrator) SubmitDetails(ctx context.Context, id string, form map[string]any, slot *job.Slot) (*job.Booking, error) {
	f, err := NormalizeForm(form)
	if err != nil {
		return nil, err
	}
	return o.submit(ctx, id, "", f, slot)
}

// SubmitForm is the structured submission path for the form issued after an
// APPROVE. formID must match the issued form when given.
func (o *Orchestrator) SubmitForm(ctx context.Context, id, formID string, values map[string]any, slot *job.Slot) (*job.Booking, error) {
	f, err := NormalizeForm(values)
	if err != nil {
		return nil, err
	}
	return o.submit(ctx, id, formID, f, slot)
}

// submit stores the details and books the meeting. Booking failure moves the
// job to error and is returned wrapped in job.ErrProvider.
func (o *Orchestrator) submit(ctx context.Context, id, formID string, form *job.Form, slot *job.Slot) (*job.Booking, error) {
	if slot != nil && !slot.End.After(slot.Start) {
		return nil, fmt.Errorf("%w: slot end must be after start", job.ErrInvalidInput)
	}

	j, unlock, err := o.lockedJob(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := o.checkSubmittable(j, formID); err != nil {
		return nil, err
	}

	merged := mergeForm(j.Form, form)
	required := j.LastDecision.Missing
	if required == nil {
		required = o.cfg.Policy.RequiredFields
	}
	if absent := merged.Absent(required); len(absent) > 0 {
		return nil, fmt.Errorf("%w: missing required details: %s", job.ErrInvalidInput, strings.Join(absent, ", "))
	}
	j.Form = merged

	if j.State == job.StateApprovedNeedsDetails {
		if err := o.transition(ctx, j, job.StateReadyToSchedule); err != nil {
			return nil, err
		}
		if err := o.save(ctx, j); err != nil {
			return nil, err
		}
		o.emit(id, events.TypeState, events.StateData{State: j.State})
	}

	if err := o.transition(ctx, j, job.StateScheduling); err != nil {
		return nil, err
	}
	j.Briefing = BuildBriefing(j.Requester, j.Form)
	brief := j.Append(job.RoleAssistant, job.AgentCalendar, j.Briefing, o.now())
	if err := o.save(ctx, j); err != nil {
		return nil, err
	}
	o.emit(id, events.TypeState, events.StateData{State: j.State})
	o.emit(id, events.TypeAgent, events.AgentData{Role: brief.Role, Agent: brief.Agent, Content: brief.Content})

	return o.book(ctx, j, slot)
}

// checkSubmittable enforces that details are only accepted for an approved
// job awaiting them.
func (o *Orchestrator) checkSubmittable(j *job.Job, formID string) error {
	switch {
	case j.State.Terminal():
		return fmt.Errorf("%w: job is already %s", job.ErrConflict, j.State)
	case j.State != job.StateApprovedNeedsDetails && j.State != job.StateReadyToSchedule:
		return fmt.Errorf("%w: job is %s and not ready for details", job.ErrConflict, j.State)
	case !j.LastDecision.Approved():
		return fmt.Errorf("%w: meeting was not approved", job.ErrConflict)
	case formID != "" && (j.FormSchema == nil || j.FormSchema.ID != formID):
		return fmt.Errorf("%w: form %q was not issued for this job", job.ErrInvalidInput, formID)
	}
	return nil
}

// book calls the scheduling provider and finishes the job either way. The
// subscriber's stream is closed afterwards.
func (o *Orchestrator) book(ctx context.Context, j *job.Job, slot *job.Slot) (*job.Booking, error) {
	id := j.ID
	defer o.events.Close(id)

	chosen := o.defaultSlot()
	if slot != nil {
		chosen = *slot
	}
	req := calendar.BookRequest{
		Slot:        chosen,
		Attendees:   j.Form.Attendees,
		Title:       meetingTitle(j.Form),
		Description: j.Briefing,
	}
	o.emit(id, events.TypeTool, events.ToolData{
		Name:   ToolBook,
		Status: events.ToolCall,
		Args:   map[string]any{"slot": chosen, "attendees": len(req.Attendees), "title": req.Title},
		Actor:  string(job.AgentCalendar),
	})

	booking, err := o.calendar.Book(ctx, req)
	record := &instrumentation.BookingRecord{
		JobID:     id,
		Requester: j.Requester,
		Attendees: req.Attendees,
		Start:     chosen.Start,
		End:       chosen.End,
	}

	if err != nil {
		if !errors.Is(err, job.ErrProvider) {
			err = fmt.Errorf("%w: %v", job.ErrProvider, err)
		}
		j.Error = err.Error()
		if terr := o.transition(ctx, j, job.StateError); terr != nil {
			return nil, terr
		}
		serr := o.save(ctx, j)
		o.emit(id, events.TypeTool, events.ToolData{Name: ToolBook, Status: events.ToolResult, Actor: string(job.AgentCalendar), Error: err.Error()})
		o.emit(id, events.TypeError, events.ErrorData{Error: "Could not book the meeting: " + err.Error()})
		o.emit(id, events.TypeState, events.StateData{State: j.State})

		record.Error = err.Error()
		o.audit.LogBooking(record)
		o.logger.Error("booking failed", logging.JobID(id), logging.Err(err))
		if serr != nil {
			return nil, errors.Join(err, serr)
		}
		return nil, err
	}

	j.Booking = booking
	if err := o.transition(ctx, j, job.StateNotified); err != nil {
		return nil, err
	}
	if err := o.save(ctx, j); err != nil {
		return nil, err
	}
	o.emit(id, events.TypeTool, events.ToolData{Name: ToolBook, Status: events.ToolResult, Result: booking, Actor: string(job.AgentCalendar)})
	o.emit(id, events.TypeScheduled, events.ScheduledData{EventID: booking.EventID, HTMLLink: booking.HTMLLink})
	o.emit(id, events.TypeState, events.StateData{State: j.State})
	o.emit(id, events.TypeDone, events.DoneData{Status: events.DoneScheduled})

	record.Success = true
	record.EventID = booking.EventID
	o.audit.LogBooking(record)
	o.logger.Info("meeting booked", logging.JobID(id), "event_id", booking.EventID)
	return booking, nil
}

// defaultSlot starts now and lasts the configured meeting duration.
func (o *Orchestrator) defaultSlot() job.Slot {
	start := o.now()
	return job.Slot{Start: start, End: start.Add(o.cfg.MeetingDuration)}
}
