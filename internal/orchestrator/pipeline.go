package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/logging"
	"github.com/teemow/meetgate/internal/oracle"
)

// Tool names reported in tool events.
const (
	ToolEvaluate = "decision.evaluate"
	ToolSuggest  = "calendar.suggest"
	ToolBook     = "calendar.book"
)

// fallbackReply is sent when the response oracle cannot produce one.
const fallbackReply = "Thanks, I have noted that. I could not draft a full reply just now; could you tell me what a meeting would need to decide?"

// ReceiveMessage ingests one user message and runs the evaluation pipeline:
// decision over the cumulative transcript, slot preview on APPROVE, then
// either a details form or a chat reply. Oracle and preview failures are
// absorbed into the event stream; only lookup, input, state and persistence
// errors are returned.
func (o *Orchestrator) ReceiveMessage(ctx context.Context, id, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: content is required", job.ErrInvalidInput)
	}

	j, unlock, err := o.lockedJob(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if !j.State.AcceptsMessages() {
		return fmt.Errorf("%w: job is %s and no longer accepts messages", job.ErrConflict, j.State)
	}
	logger := logging.WithJob(o.logger, id)

	// 1. Record the message and enter evaluating.
	msg := j.Append(job.RoleUser, job.AgentUser, content, o.now())
	if j.State != job.StateEvaluating {
		if err := o.transition(ctx, j, job.StateEvaluating); err != nil {
			return err
		}
	}
	if err := o.save(ctx, j); err != nil {
		return err
	}
	o.emit(id, events.TypeState, events.StateData{State: j.State})
	o.emit(id, events.TypeChat, events.ChatData{Role: msg.Role, Agent: msg.Agent, Content: msg.Content})

	// 2-3. Judge the cumulative user intent.
	decision := o.evaluate(ctx, j)

	// 4. Preview availability and settle the missing list on APPROVE.
	var missing []string
	if decision.Approved() {
		required := decision.Missing
		if required == nil {
			required = o.cfg.Policy.RequiredFields
		}
		missing = j.Form.Absent(oracle.NormalizeFields(required))
		decision.Missing = missing
		if decision.Missing == nil {
			decision.Missing = []string{}
		}
	} else if decision.Missing == nil {
		decision.Missing = []string{}
	}
	j.LastDecision = decision
	j.Evaluated = true

	// 5. Record the decision as an internal transcript entry.
	entry := j.Append(job.RoleAssistant, job.AgentDecision, describeDecision(decision), o.now())
	if err := o.save(ctx, j); err != nil {
		return err
	}
	o.emit(id, events.TypeDecision, *decision)
	if decision.Approved() {
		o.previewAvailability(ctx, id)
	}
	o.emit(id, events.TypeAgent, events.AgentData{Role: entry.Role, Agent: entry.Agent, Content: entry.Content, Debug: true})

	// 6. Approved but incomplete: the form is the only follow-up.
	if decision.Approved() && len(missing) > 0 {
		if err := o.transition(ctx, j, job.StateApprovedNeedsDetails); err != nil {
			return err
		}
		j.FormSchema = BuildFormSchema(o.newID(), missing)
		prefill := Prefill(j, o.cfg.TailSize)
		if err := o.save(ctx, j); err != nil {
			return err
		}
		o.emit(id, events.TypeGather, events.GatherData{Ask: missing})
		o.emit(id, events.TypeForm, events.FormData{Schema: j.FormSchema, Prefill: prefill})
		o.emit(id, events.TypeState, events.StateData{State: j.State})
		logger.Info("meeting approved, gathering details", "missing", strings.Join(missing, ","))
		return nil
	}

	// 7. Otherwise reply in prose.
	reply := o.reply(ctx, j, missing, decision)
	chat := j.Append(job.RoleAssistant, job.AgentChat, reply, o.now())
	j.FormSchema = nil

	// 8. DECLINE never moves toward scheduling.
	next := job.StateAwaitingInput
	if decision.Approved() {
		next = job.StateReadyToSchedule
	}
	if err := o.transition(ctx, j, next); err != nil {
		return err
	}
	if err := o.save(ctx, j); err != nil {
		return err
	}
	o.emit(id, events.TypeChat, events.ChatData{Role: chat.Role, Agent: chat.Agent, Content: chat.Content})
	o.emit(id, events.TypeState, events.StateData{State: j.State})
	logger.Info("message evaluated", "decision", string(decision.Decision), logging.State(string(j.State)))
	return nil
}

// evaluate calls the decision oracle, bracketing it with tool events.
// Failures yield a safe DECLINE.
func (o *Orchestrator) evaluate(ctx context.Context, j *job.Job) *job.Decision {
	transcript := j.UserTranscript()
	o.emit(j.ID, events.TypeTool, events.ToolData{
		Name:   ToolEvaluate,
		Status: events.ToolCall,
		Args:   map[string]any{"messages": len(j.UserMessages()), "checklist": len(o.cfg.Policy.Checklist)},
		Actor:  string(job.AgentDecision),
	})

	d, err := o.decider.Evaluate(ctx, transcript, o.cfg.Policy)
	if err == nil {
		err = oracle.CheckDecision(d)
	}
	result := events.ToolData{Name: ToolEvaluate, Status: events.ToolResult, Actor: string(job.AgentDecision)}
	if err != nil {
		o.logger.Warn("decision oracle failed, declining", logging.JobID(j.ID), logging.Err(err))
		d = oracle.SafeDecline(err)
		result.Error = err.Error()
	}
	result.Result = map[string]any{"decision": d.Decision}
	o.emit(j.ID, events.TypeTool, result)

	clone := *d
	if d.Missing != nil {
		clone.Missing = append([]string{}, d.Missing...)
	}
	return &clone
}

// previewAvailability asks the provider for candidate slots. Failure is
// reported but does not affect the job.
func (o *Orchestrator) previewAvailability(ctx context.Context, id string) {
	req := o.cfg.Availability
	o.emit(id, events.TypeTool, events.ToolData{Name: ToolSuggest, Status: events.ToolCall, Args: req, Actor: string(job.AgentCalendar)})

	slots, err := o.calendar.Suggest(ctx, req)
	if err != nil {
		o.logger.Warn("availability preview failed", logging.JobID(id), logging.Err(err))
		o.emit(id, events.TypeTool, events.ToolData{Name: ToolSuggest, Status: events.ToolResult, Actor: string(job.AgentCalendar), Error: err.Error()})
		o.emit(id, events.TypeLog, events.LogData{Msg: "availability preview unavailable: " + err.Error()})
		return
	}
	o.emit(id, events.TypeTool, events.ToolData{Name: ToolSuggest, Status: events.ToolResult, Result: slots, Actor: string(job.AgentCalendar)})
}

// reply asks the response oracle for the user-facing message.
func (o *Orchestrator) reply(ctx context.Context, j *job.Job, missing []string, d *job.Decision) string {
	text, err := o.responder.Reply(ctx, oracle.ReplyRequest{
		Tail:     j.Tail(o.cfg.TailSize),
		Missing:  missing,
		Decision: d,
	})
	if err != nil {
		o.logger.Warn("response oracle failed, using fallback reply", logging.JobID(j.ID), logging.Err(err))
		return fallbackReply
	}
	return text
}

func describeDecision(d *job.Decision) string {
	s := fmt.Sprintf("%s: %s", d.Decision, d.Rationale)
	if len(d.Missing) > 0 {
		s += " (missing: " + strings.Join(d.Missing, ", ") + ")"
	}
	return s
}
