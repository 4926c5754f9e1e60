// Package common provides shared utilities for MCP tool implementations:
// argument parsing, JSON results and the instrumented handler wrapper.
package common
