// Package batch runs one tool operation over several job ids and reports a
// per-id outcome, so a single failing job does not fail the whole call.
package batch
