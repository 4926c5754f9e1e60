// Package events carries typed job progress events from the orchestrator to
// the transport that is streaming them to a client.
//
// Each job has at most one subscriber. Events reach it in publish order
// through a buffered channel; nothing is replayed beyond the initial events
// passed to Attach, so a reconnecting client sees a fresh snapshot and not
// the events it missed.
package events
