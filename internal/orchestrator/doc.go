// Package orchestrator drives a meeting request from first message to booked
// event.
//
// Each user message is appended to the job's transcript and the whole user
// side of the conversation is judged by the decision oracle. A DECLINE gets
// a prose reply and the job waits for more input. An APPROVE previews
// availability and then either asks for the missing details through a form
// or, when nothing is missing, becomes ready to schedule. Submitting the
// details builds a briefing and books the meeting through the calendar
// provider, ending the job in notified or error.
//
// Every step is persisted before its events are published, so a subscriber
// that reconnects sees a state snapshot consistent with the store. Operations
// on one job id are serialized.
package orchestrator
