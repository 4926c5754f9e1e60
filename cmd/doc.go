// Package cmd implements the command-line interface for meetgate.
//
// This package provides the following commands:
//   - serve: Start the gatekeeper over HTTP (JSON API plus event stream) or as an MCP server over stdio
//   - auth: Authorize a Google Calendar account and store its token
//   - slots: Preview the free slots the gatekeeper would offer
//   - jobs: List stored meeting requests or show one as JSON
//   - version: Display version information
//
// Every command reads the YAML file given by --config or MEETGATE_CONFIG and
// falls back to built-in defaults without one.
package cmd
