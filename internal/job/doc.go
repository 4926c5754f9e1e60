// Package job defines the meeting-request job record and its lifecycle.
//
// A Job is one scheduling conversation: the ordered transcript, the most
// recent gatekeeping decision, the gathered meeting details and the booking
// outcome. The state machine lives here so every component that touches a
// job (orchestrator, stores, transports) agrees on which transitions exist:
//
//	awaiting_input --user msg--> evaluating
//	evaluating --DECLINE--> awaiting_input
//	evaluating --APPROVE,missing--> approved_needs_details
//	evaluating --APPROVE,none missing--> ready_to_schedule
//	approved_needs_details --submit--> ready_to_schedule
//	ready_to_schedule --(auto)--> scheduling
//	scheduling --success--> notified
//	scheduling --failure--> error
//
// A follow-up user message on an approved job re-enters evaluating so the
// cumulative transcript is judged again.
package job
