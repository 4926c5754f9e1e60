package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/oracle"
)

// NormalizeForm converts loosely typed submission values into a Form.
//
// Keys are matched to the canonical field names case- and separator-
// insensitively. List fields (attendees, links) accept a comma-separated
// string or an array of strings; entries are trimmed and empties dropped.
// Scalar fields accept strings, numbers and booleans. Unknown keys land in
// Form.Extra.
func NormalizeForm(values map[string]any) (*job.Form, error) {
	form := &job.Form{}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field := oracle.CanonicalField(key)
		if field == "" {
			continue
		}
		raw := values[key]

		switch field {
		case job.FieldAttendees, job.FieldLinks:
			list, err := StringList(raw, field)
			if err != nil {
				return nil, err
			}
			if field == job.FieldAttendees {
				form.Attendees = appendUnique(form.Attendees, list...)
			} else {
				form.Links = appendUnique(form.Links, list...)
			}
			continue
		}

		s, err := scalar(raw, field)
		if err != nil {
			return nil, err
		}
		if s == "" {
			continue
		}
		switch field {
		case job.FieldTopic:
			form.Topic = s
		case job.FieldUrgency:
			form.Urgency = s
		case job.FieldDesiredTimeframe:
			form.DesiredTimeframe = s
		case job.FieldBackground:
			form.Background = s
		default:
			if form.Extra == nil {
				form.Extra = make(map[string]string)
			}
			form.Extra[field] = s
		}
	}
	return form, nil
}

// StringList parses a value that can be either a comma-separated string or an
// array of strings. Entries are trimmed and empty entries dropped; nil yields
// an empty list.
func StringList(v any, name string) ([]string, error) {
	var parts []string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string", job.ErrInvalidInput, name, i)
			}
			parts = append(parts, s)
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a string or array of strings", job.ErrInvalidInput, name)
	}

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func scalar(v any, name string) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(val), nil
	case float64, int, int64, bool:
		return fmt.Sprint(val), nil
	case []any, []string:
		list, err := StringList(val, name)
		if err != nil {
			return "", err
		}
		return strings.Join(list, ", "), nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", job.ErrInvalidInput, name)
	}
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, d := range dst {
			if strings.EqualFold(d, it) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}

// mergeForm overlays the non-empty values of update onto base.
func mergeForm(base, update *job.Form) *job.Form {
	out := &job.Form{}
	if base != nil {
		*out = *base
		out.Attendees = append([]string(nil), base.Attendees...)
		out.Links = append([]string(nil), base.Links...)
		if base.Extra != nil {
			out.Extra = make(map[string]string, len(base.Extra))
			for k, v := range base.Extra {
				out.Extra[k] = v
			}
		}
	}
	if update == nil {
		return out
	}
	if update.Topic != "" {
		out.Topic = update.Topic
	}
	if len(update.Attendees) > 0 {
		out.Attendees = append([]string(nil), update.Attendees...)
	}
	if update.Urgency != "" {
		out.Urgency = update.Urgency
	}
	if update.DesiredTimeframe != "" {
		out.DesiredTimeframe = update.DesiredTimeframe
	}
	if update.Background != "" {
		out.Background = update.Background
	}
	if len(update.Links) > 0 {
		out.Links = append([]string(nil), update.Links...)
	}
	for k, v := range update.Extra {
		if out.Extra == nil {
			out.Extra = make(map[string]string)
		}
		out.Extra[k] = v
	}
	return out
}
