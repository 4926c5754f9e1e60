// Package instrumentation wires OpenTelemetry metrics and tracing into
// meetgate and keeps the audit trail for bookings and tool calls.
//
// A Provider is built once at startup from Config. When instrumentation is
// disabled the Provider still returns a *Metrics, and every Record method on
// it does nothing, so callers never check for nil.
//
// Metrics:
//
//	http_requests_total, http_request_duration_seconds    API traffic
//	active_subscribers                                    open job event streams
//	job_transitions_total{from,to}                        state machine moves
//	job_decisions_total{decision}                         gatekeeping outcomes
//	oracle_calls_total, oracle_call_duration_seconds      decision and response oracles
//	google_api_operations_total,
//	google_api_operation_duration_seconds                 Calendar free/busy and inserts
//	mcp_tool_invocations_total, mcp_tool_duration_seconds MCP tools
//
// Job ids are only attached as labels with METRICS_DETAILED_LABELS=true.
//
// Spans are named oracle.<kind>, google.<service>.<operation> and
// tool.<name>. With OTEL_TRACES_EXPORTER=none they are never sampled.
//
// The prometheus exporter is scraped from the dedicated metrics server; otlp
// pushes to OTEL_EXPORTER_OTLP_ENDPOINT. See ConfigFromEnv for every
// environment variable and its default.
package instrumentation
