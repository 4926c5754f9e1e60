package job

import (
	"strings"
	"time"
)

// Role is the author side of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Agent identifies which participant produced a transcript entry.
type Agent string

const (
	AgentUser     Agent = "user"
	AgentChat     Agent = "chat"
	AgentDecision Agent = "decision"
	AgentCalendar Agent = "calendar"
)

// Message is one transcript entry. Transcripts are append-only.
type Message struct {
	Role      Role      `json:"role"`
	Agent     Agent     `json:"agent"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Verdict is the gatekeeping outcome.
type Verdict string

const (
	Approve Verdict = "APPROVE"
	Decline Verdict = "DECLINE"
)

// Decision is the structured judgment returned by a decision oracle.
//
// A nil Missing means the oracle did not say which fields are missing; an
// empty non-nil slice means it explicitly found nothing missing.
type Decision struct {
	Decision  Verdict  `json:"decision"`
	Rationale string   `json:"rationale"`
	Missing   []string `json:"missing"`
}

// Approved reports whether the decision is APPROVE.
func (d *Decision) Approved() bool {
	return d != nil && d.Decision == Approve
}

// Known form field names.
const (
	FieldTopic            = "topic"
	FieldAttendees        = "attendees"
	FieldUrgency          = "urgency"
	FieldDesiredTimeframe = "desiredTimeframe"
	FieldBackground       = "background"
	FieldLinks            = "links"
)

// KnownFields lists the canonical form fields in display order.
var KnownFields = []string{
	FieldTopic,
	FieldAttendees,
	FieldUrgency,
	FieldDesiredTimeframe,
	FieldBackground,
	FieldLinks,
}

// Form holds the gathered meeting details. Extra carries fields the decision
// oracle asked for that are not part of the canonical set.
type Form struct {
	Topic            string            `json:"topic"`
	Attendees        []string          `json:"attendees"`
	Urgency          string            `json:"urgency"`
	DesiredTimeframe string            `json:"desiredTimeframe"`
	Background       string            `json:"background"`
	Links            []string          `json:"links"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// Has reports whether field carries a non-empty value.
func (f *Form) Has(field string) bool {
	if f == nil {
		return false
	}
	switch field {
	case FieldTopic:
		return strings.TrimSpace(f.Topic) != ""
	case FieldAttendees:
		return len(f.Attendees) > 0
	case FieldUrgency:
		return strings.TrimSpace(f.Urgency) != ""
	case FieldDesiredTimeframe:
		return strings.TrimSpace(f.DesiredTimeframe) != ""
	case FieldBackground:
		return strings.TrimSpace(f.Background) != ""
	case FieldLinks:
		return len(f.Links) > 0
	}
	return strings.TrimSpace(f.Extra[field]) != ""
}

// Absent returns the fields from required that the form does not carry.
func (f *Form) Absent(required []string) []string {
	var absent []string
	for _, field := range required {
		if !f.Has(field) {
			absent = append(absent, field)
		}
	}
	return absent
}

// FormField describes one input of a synthesized form.
type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // "text", "textarea", "list", "select"
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// FormSchema is the structured follow-up artifact emitted after an APPROVE
// with missing details.
type FormSchema struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Fields []FormField `json:"fields"`
}

// Slot is a candidate or chosen meeting time.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Booking is the confirmation returned by the scheduling provider.
type Booking struct {
	EventID  string    `json:"eventId"`
	HTMLLink string    `json:"htmlLink"`
	Slot     Slot      `json:"slot"`
	BookedAt time.Time `json:"bookedAt"`
}

// Policy is the gatekeeping configuration handed to the decision oracle.
type Policy struct {
	Checklist      []string `json:"checklist" yaml:"checklist"`
	RequiredFields []string `json:"requiredFields" yaml:"required_fields"`
}

// Job is the unit of orchestration. The record store persists it whole.
type Job struct {
	ID           string      `json:"id"`
	State        State       `json:"state"`
	Messages     []Message   `json:"messages"`
	LastDecision *Decision   `json:"lastDecision,omitempty"`
	Form         *Form       `json:"form,omitempty"`
	FormSchema   *FormSchema `json:"formSchema,omitempty"`
	Evaluated    bool        `json:"evaluated"`
	Requester    string      `json:"requester,omitempty"`
	Briefing     string      `json:"briefing,omitempty"`
	Booking      *Booking    `json:"booking,omitempty"`
	Error        string      `json:"error,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// New creates a job in awaiting_input.
func New(id string, now time.Time) *Job {
	return &Job{
		ID:        id,
		State:     StateAwaitingInput,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a transcript entry.
func (j *Job) Append(role Role, agent Agent, content string, at time.Time) Message {
	msg := Message{Role: role, Agent: agent, Content: content, Timestamp: at}
	j.Messages = append(j.Messages, msg)
	j.UpdatedAt = at
	return msg
}

// UserTranscript concatenates all user-authored contents oldest to newest.
func (j *Job) UserTranscript() string {
	var parts []string
	for _, m := range j.Messages {
		if m.Role == RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// UserMessages returns the user-authored contents in order.
func (j *Job) UserMessages() []string {
	var out []string
	for _, m := range j.Messages {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// Tail returns the last n transcript entries, skipping decision-authored ones
// which are internal.
func (j *Job) Tail(n int) []Message {
	var visible []Message
	for _, m := range j.Messages {
		if m.Agent == AgentDecision {
			continue
		}
		visible = append(visible, m)
	}
	if len(visible) > n {
		visible = visible[len(visible)-n:]
	}
	return visible
}
