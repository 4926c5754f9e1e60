// Package calendar provides availability and booking on Google Calendar.
//
// Client is a thin, instrumented wrapper over the Calendar v3 API (freebusy
// and event insert). SuggestSlots is the pure slot algorithm: busy intervals
// are merged and subtracted from a daily window at slot granularity.
// GoogleProvider combines the two behind the Provider interface the
// orchestrator calls; DryRunProvider satisfies the same interface without
// touching a calendar.
package calendar
