package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teemow/meetgate/internal/job"
)

var fieldLabels = map[string]string{
	job.FieldTopic:            "Topic",
	job.FieldAttendees:        "Attendees",
	job.FieldUrgency:          "Urgency",
	job.FieldDesiredTimeframe: "Desired timeframe",
	job.FieldBackground:       "Background",
	job.FieldLinks:            "Links",
}

// UrgencyOptions are the choices offered for the urgency field.
var UrgencyOptions = []string{"low", "normal", "high"}

// BuildFormSchema lists every known field plus any extra missing ones.
// A field is required exactly when it is in missing.
func BuildFormSchema(id string, missing []string) *job.FormSchema {
	required := make(map[string]bool, len(missing))
	for _, m := range missing {
		required[m] = true
	}

	schema := &job.FormSchema{ID: id, Title: "Meeting details"}
	for _, name := range job.KnownFields {
		schema.Fields = append(schema.Fields, formField(name, required[name]))
		delete(required, name)
	}
	// Extra fields the oracle asked for keep their order from missing.
	for _, m := range missing {
		if required[m] {
			schema.Fields = append(schema.Fields, formField(m, true))
			delete(required, m)
		}
	}
	return schema
}

func formField(name string, required bool) job.FormField {
	f := job.FormField{Name: name, Label: fieldLabels[name], Type: "text", Required: required}
	if f.Label == "" {
		f.Label = name
	}
	switch name {
	case job.FieldAttendees, job.FieldLinks:
		f.Type = "list"
	case job.FieldBackground:
		f.Type = "textarea"
	case job.FieldUrgency:
		f.Type = "select"
		f.Options = UrgencyOptions
	}
	return f
}

// Prefill proposes values for the form from what the job already knows:
// previously submitted details, a topic from the latest user message and a
// background summary of the recent user messages.
func Prefill(j *job.Job, tail int) map[string]any {
	prefill := make(map[string]any)
	if f := j.Form; f != nil {
		if f.Topic != "" {
			prefill[job.FieldTopic] = f.Topic
		}
		if len(f.Attendees) > 0 {
			prefill[job.FieldAttendees] = f.Attendees
		}
		if f.Urgency != "" {
			prefill[job.FieldUrgency] = f.Urgency
		}
		if f.DesiredTimeframe != "" {
			prefill[job.FieldDesiredTimeframe] = f.DesiredTimeframe
		}
		if f.Background != "" {
			prefill[job.FieldBackground] = f.Background
		}
		if len(f.Links) > 0 {
			prefill[job.FieldLinks] = f.Links
		}
	}

	var recent []string
	for _, m := range j.Tail(tail) {
		if m.Role == job.RoleUser {
			recent = append(recent, strings.Join(strings.Fields(m.Content), " "))
		}
	}
	if len(recent) == 0 {
		return prefill
	}
	if _, ok := prefill[job.FieldTopic]; !ok {
		prefill[job.FieldTopic] = truncate(recent[len(recent)-1], 80)
	}
	if _, ok := prefill[job.FieldBackground]; !ok {
		prefill[job.FieldBackground] = truncate(strings.Join(recent, " "), 400)
	}
	return prefill
}

// BuildBriefing renders the event description: the requester followed by
// every form field in a fixed order. The same input always yields the same text.
func BuildBriefing(requester string, f *job.Form) string {
	if f == nil {
		f = &job.Form{}
	}
	if requester == "" {
		requester = "unknown"
	}

	var b strings.Builder
	b.WriteString("Meeting briefing\n")
	fmt.Fprintf(&b, "Requester: %s\n", requester)
	fmt.Fprintf(&b, "Topic: %s\n", orNone(f.Topic))
	fmt.Fprintf(&b, "Attendees: %s\n", orNone(strings.Join(f.Attendees, ", ")))
	fmt.Fprintf(&b, "Urgency: %s\n", orNone(f.Urgency))
	fmt.Fprintf(&b, "Desired timeframe: %s\n", orNone(f.DesiredTimeframe))
	fmt.Fprintf(&b, "Background: %s\n", orNone(f.Background))
	if len(f.Links) == 0 {
		b.WriteString("Links: none\n")
	} else {
		b.WriteString("Links:\n")
		for _, l := range f.Links {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	keys := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, orNone(f.Extra[k]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// meetingTitle names the calendar event.
func meetingTitle(f *job.Form) string {
	if f != nil && f.Topic != "" {
		return "Meeting: " + f.Topic
	}
	return "Meeting request"
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
