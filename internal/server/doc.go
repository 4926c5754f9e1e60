// Package server exposes the orchestrator over HTTP.
//
// # Endpoints
//
//	POST /api/start         {initialMessage?, requester?}        -> {jobId}
//	GET  /api/events?jobId= server-sent events for one job
//	POST /api/message       {jobId, content}                     -> {ok}
//	POST /api/complete      {jobId, form, slot?}                 -> {ok, event}
//	POST /api/form/submit   {jobId, formId, values, slot?}       -> {ok, event}
//	GET  /api/jobs/{jobId}  full job record, including internal transcript entries
//	GET  /api/jobs          ids of stored jobs
//
// Each SSE frame is named after the event type and carries the event payload
// as JSON data. Only one stream per job is live: opening a second stream ends
// the first.
//
// Errors are JSON objects {"error": "..."}; job.ErrNotFound maps to 404,
// job.ErrInvalidInput to 400, job.ErrConflict to 409 and provider or oracle
// failures to 502.
//
// ServerContext owns the collaborators shared with the MCP tools.
// MetricsServer serves Prometheus metrics on a separate port.
package server
