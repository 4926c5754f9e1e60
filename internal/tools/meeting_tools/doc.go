// Package meeting_tools exposes the meeting gatekeeper as MCP tools.
//
// The tools drive the same orchestrator as the HTTP API. Because MCP calls are
// request/response, meeting_message answers with the job's resulting state,
// decision, latest assistant reply and any issued form instead of streaming
// events.
//
// Tools:
//   - meeting_start, meeting_message, meeting_get, meeting_list
//   - meeting_submit_details, meeting_submit_form
//   - meeting_suggest_slots
package meeting_tools
