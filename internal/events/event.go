package events

import (
	"time"

	"github.com/teemow/meetgate/internal/job"
)

// Type names an event on a job stream.
type Type string

const (
	TypeLog       Type = "log"
	TypeState     Type = "state"
	TypeDecision  Type = "decision"
	TypeGather    Type = "gather"
	TypeForm      Type = "form"
	TypeChat      Type = "chat"
	TypeAgent     Type = "agent"
	TypeTool      Type = "tool"
	TypeScheduled Type = "scheduled"
	TypeDone      Type = "done"
	TypeError     Type = "error"
)

// Event is one typed progress notification for a job.
type Event struct {
	Type  Type      `json:"type"`
	JobID string    `json:"jobId"`
	Data  any       `json:"data"`
	At    time.Time `json:"at"`
}

// Payloads carried in Event.Data, one per Type.

type LogData struct {
	Msg string `json:"msg"`
}

type StateData struct {
	State job.State `json:"state"`
}

type GatherData struct {
	Ask []string `json:"ask"`
}

type FormData struct {
	Schema  *job.FormSchema `json:"schema"`
	Prefill map[string]any  `json:"prefill,omitempty"`
}

// Tool statuses.
const (
	ToolCall   = "call"
	ToolResult = "result"
)

type ToolData struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Args   any    `json:"args,omitempty"`
	Result any    `json:"result,omitempty"`
	Actor  string `json:"actor"`
	Error  string `json:"error,omitempty"`
}

type AgentData struct {
	Role    job.Role  `json:"role"`
	Agent   job.Agent `json:"agent"`
	Content string    `json:"content"`
	Debug   bool      `json:"debug,omitempty"`
}

type ChatData struct {
	Role    job.Role  `json:"role"`
	Agent   job.Agent `json:"agent"`
	Content string    `json:"content"`
}

type ScheduledData struct {
	EventID  string `json:"eventId"`
	HTMLLink string `json:"htmlLink"`
}

// Done statuses.
const (
	DoneScheduled = "SCHEDULED"
)

type DoneData struct {
	Status string `json:"status"`
}

type ErrorData struct {
	Error string `json:"error"`
}
