package instrumentation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/meetgate/internal/logging"
)

// ToolInvocation captures one MCP tool call for audit logging.
type ToolInvocation struct {
	Tool  string
	JobID string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a call to tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithJob sets the job the tool operated on.
func (ti *ToolInvocation) WithJob(jobID string) *ToolInvocation {
	ti.JobID = jobID
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status is StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the invocation as log attributes.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.JobID != "" {
		attrs = append(attrs, slog.String(logging.KeyJobID, ti.JobID))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// BookingRecord captures a calendar booking attempt for audit logging.
//
// Requester and Attendees contain PII; the AuditLogger hashes them unless
// IncludePII is configured.
type BookingRecord struct {
	JobID     string
	Requester string
	Attendees []string
	Start     time.Time
	End       time.Time
	EventID   string
	Success   bool
	Error     string
}

// LogAttrs returns slog attributes for the booking. When includePII is false
// addresses are replaced by hashed identifiers and attendee domains.
func (br *BookingRecord) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String(logging.KeyJobID, br.JobID),
		slog.Time("start", br.Start),
		slog.Time("end", br.End),
		slog.Int("attendee_count", len(br.Attendees)),
		slog.Bool("success", br.Success),
	}
	if includePII {
		attrs = append(attrs,
			slog.String("requester", br.Requester),
			slog.String("attendees", strings.Join(br.Attendees, ",")),
		)
	} else {
		attrs = append(attrs,
			logging.UserHash(br.Requester),
			slog.String("attendee_domains", strings.Join(logging.AttendeeDomains(br.Attendees), ",")),
		)
	}
	if br.EventID != "" {
		attrs = append(attrs, slog.String("event_id", br.EventID))
	}
	if br.Error != "" {
		attrs = append(attrs, slog.String("error", br.Error))
	}
	return attrs
}

// AuditLogger writes the audit trail: one record per MCP tool call and per
// booking attempt. A nil *AuditLogger drops everything.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger returns an AuditLogger tagged with the audit component.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String(logging.KeyComponent, "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation records a finished tool call.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level, msg := slog.LevelInfo, "tool_executed"
	if !ti.Success {
		level, msg = slog.LevelWarn, "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, ti.LogAttrs()...)
}

// LogBooking records a booking attempt.
func (al *AuditLogger) LogBooking(br *BookingRecord) {
	if al == nil || !al.enabled {
		return
	}

	level, msg := slog.LevelInfo, "meeting_booked"
	if !br.Success {
		level, msg = slog.LevelWarn, "meeting_booking_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, br.LogAttrs(al.includePII)...)
}
