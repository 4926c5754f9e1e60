// Package resources provides MCP resources for reading meeting requests.
// Resources are read-only data sources that MCP clients can fetch:
//
//   - meetgate://policy: the checklist, required details and slot window
//   - meetgate://jobs: every stored meeting request with its state
//   - meetgate://jobs/{jobId}: the full record of one request
package resources
