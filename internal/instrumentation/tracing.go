package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer every meetgate span comes from.
const TracerName = "github.com/teemow/meetgate"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrJobID     = "meetgate.job_id"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
	SpanAttrEventID   = "google.event_id"
	SpanAttrOracle    = "oracle.name"
	SpanAttrDecision  = "oracle.decision"
)

// JobAttr tags a span with a job id. Empty ids yield no attribute.
func JobAttr(jobID string) []attribute.KeyValue {
	if jobID == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String(SpanAttrJobID, jobID)}
}

// EventAttr tags a span with a booked calendar event id. Empty ids yield no
// attribute.
func EventAttr(eventID string) []attribute.KeyValue {
	if eventID == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String(SpanAttrEventID, eventID)}
}

func newSpan(ctx context.Context, name string, kind trace.SpanKind, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...), trace.WithSpanKind(kind))
}

// StartToolSpan starts the server span tool.<name> around an MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return newSpan(ctx, "tool."+toolName, trace.SpanKindServer, attrs)
}

// StartOracleSpan starts the client span oracle.<kind> around a decision or
// response oracle call.
func StartOracleSpan(ctx context.Context, oracle, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrOracle, oracle)}, attrs...)
	return newSpan(ctx, "oracle."+kind, trace.SpanKindClient, attrs)
}

// StartGoogleAPISpan starts the client span google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return newSpan(ctx, "google."+service+"."+operation, trace.SpanKindClient, attrs)
}

// SetSpanError marks span failed with err. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
