package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrOracle    = "oracle"
	attrKind      = "kind"
	attrDecision  = "decision"
	attrFrom      = "from"
	attrTo        = "to"
	attrJobID     = "job_id"
)

// Label values shared by metrics, spans and the audit log.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ServiceCalendar   = "calendar"
	OperationFreeBusy = "freebusy"
	OperationInsert   = "insert"

	OracleKindDecision = "decision"
	OracleKindResponse = "response"
)

// Metrics records meetgate's metrics. Every Record method is a no-op on a
// nil or empty *Metrics.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSubscribers   metric.Int64UpDownCounter

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	oracleCallsTotal   metric.Int64Counter
	oracleCallDuration metric.Float64Histogram

	jobTransitionsTotal metric.Int64Counter
	decisionsTotal      metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// Histogram bucket boundaries in seconds.
var (
	httpBuckets   = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10}
	remoteBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	oracleBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
)

// NewMetrics creates every instrument on meter. With detailedLabels set, job
// ids are attached to job metrics.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	b := instruments{meter: meter}
	m := &Metrics{
		httpRequestsTotal:          b.counter("http_requests_total", "HTTP requests served by the API", "{request}"),
		httpRequestDuration:        b.seconds("http_request_duration_seconds", "HTTP request latency", httpBuckets),
		activeSubscribers:          b.gauge("active_subscribers", "Attached job event streams", "{subscriber}"),
		googleAPIOperationsTotal:   b.counter("google_api_operations_total", "Google API calls", "{operation}"),
		googleAPIOperationDuration: b.seconds("google_api_operation_duration_seconds", "Google API call latency", remoteBuckets),
		oracleCallsTotal:           b.counter("oracle_calls_total", "Decision and response oracle calls", "{call}"),
		oracleCallDuration:         b.seconds("oracle_call_duration_seconds", "Oracle call latency", oracleBuckets),
		jobTransitionsTotal:        b.counter("job_transitions_total", "Job state transitions", "{transition}"),
		decisionsTotal:             b.counter("job_decisions_total", "Gatekeeping decisions by outcome", "{decision}"),
		toolInvocationsTotal:       b.counter("mcp_tool_invocations_total", "MCP tool invocations", "{invocation}"),
		toolDuration:               b.seconds("mcp_tool_duration_seconds", "MCP tool latency", remoteBuckets),
		detailedLabels:             detailedLabels,
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// instruments creates instruments and collects the errors.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (b *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create %s counter: %w", name, err))
	}
	return c
}

func (b *instruments) gauge(name, desc, unit string) metric.Int64UpDownCounter {
	g, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create %s gauge: %w", name, err))
	}
	return g
}

func (b *instruments) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create %s histogram: %w", name, err))
	}
	return h
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	countAndTime(ctx, m.httpRequestsTotal, m.httpRequestDuration, duration, attrs)
}

// RecordGoogleAPIOperation records one Google API call, e.g. service
// "calendar" with operation "freebusy" or "insert".
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	countAndTime(ctx, m.googleAPIOperationsTotal, m.googleAPIOperationDuration, duration, attrs)
}

// RecordOracleCall records one oracle invocation. kind is "decision" or
// "response"; status is "success" or "error".
func (m *Metrics) RecordOracleCall(ctx context.Context, oracle, kind, status string, duration time.Duration) {
	if m == nil || m.oracleCallsTotal == nil || m.oracleCallDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOracle, oracle),
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	}

	countAndTime(ctx, m.oracleCallsTotal, m.oracleCallDuration, duration, attrs)
}

// RecordJobTransition records a job moving between lifecycle states.
// The job id is attached only when detailedLabels is enabled.
func (m *Metrics) RecordJobTransition(ctx context.Context, jobID, from, to string) {
	if m == nil || m.jobTransitionsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrFrom, from),
		attribute.String(attrTo, to),
	}
	if m.detailedLabels && jobID != "" {
		attrs = append(attrs, attribute.String(attrJobID, jobID))
	}

	m.jobTransitionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDecision records a gatekeeping outcome ("APPROVE" or "DECLINE").
func (m *Metrics) RecordDecision(ctx context.Context, decision string) {
	if m == nil || m.decisionsTotal == nil {
		return
	}

	m.decisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrDecision, decision)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	countAndTime(ctx, m.toolInvocationsTotal, m.toolDuration, duration, attrs)
}

// IncrementActiveSubscribers increments the attached subscriber gauge.
func (m *Metrics) IncrementActiveSubscribers(ctx context.Context) {
	if m == nil || m.activeSubscribers == nil {
		return
	}

	m.activeSubscribers.Add(ctx, 1)
}

// DecrementActiveSubscribers decrements the attached subscriber gauge.
func (m *Metrics) DecrementActiveSubscribers(ctx context.Context) {
	if m == nil || m.activeSubscribers == nil {
		return
	}

	m.activeSubscribers.Add(ctx, -1)
}

func countAndTime(ctx context.Context, c metric.Int64Counter, h metric.Float64Histogram, d time.Duration, attrs []attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	c.Add(ctx, 1, opt)
	h.Record(ctx, d.Seconds(), opt)
}
