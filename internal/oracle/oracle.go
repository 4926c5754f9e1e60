package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teemow/meetgate/internal/job"
)

// DecisionOracle judges whether the cumulative user intent warrants a meeting.
type DecisionOracle interface {
	Evaluate(ctx context.Context, transcript string, policy job.Policy) (*job.Decision, error)
}

// ReplyRequest is the input to a response oracle.
type ReplyRequest struct {
	// Tail is the recent user-visible transcript, oldest first.
	Tail []job.Message
	// Missing lists details still to be gathered.
	Missing []string
	// Decision is the judgment the reply should be consistent with.
	Decision *job.Decision
}

// ResponseOracle writes the natural-language reply shown to the user.
type ResponseOracle interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// Oracle is a named implementation of both roles.
type Oracle interface {
	DecisionOracle
	ResponseOracle
	Name() string
}

// Oracle implementations accepted by New.
const (
	TypeHeuristic = "heuristic"
	TypeChat      = "chat"
)

// rawDecision is the wire shape oracles answer with.
type rawDecision struct {
	Decision  string    `json:"decision"`
	Rationale string    `json:"rationale"`
	Missing   *[]string `json:"missing"`
}

// ParseDecision validates oracle output into a Decision.
//
// The text may wrap the JSON object in prose or a fenced code block. Decision
// must be APPROVE or DECLINE (any case). Missing field names are mapped onto
// the canonical form field names where they match one. A missing "missing"
// key yields a nil Missing slice. Non-conforming output returns an error
// wrapping job.ErrParse.
func ParseDecision(text string) (*job.Decision, error) {
	obj := extractObject(text)
	if obj == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", job.ErrParse)
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", job.ErrParse, err)
	}

	d := &job.Decision{Rationale: strings.TrimSpace(raw.Rationale)}
	switch job.Verdict(strings.ToUpper(strings.TrimSpace(raw.Decision))) {
	case job.Approve:
		d.Decision = job.Approve
	case job.Decline:
		d.Decision = job.Decline
	default:
		return nil, fmt.Errorf("%w: decision %q is neither APPROVE nor DECLINE", job.ErrParse, raw.Decision)
	}

	if raw.Missing != nil {
		d.Missing = NormalizeFields(*raw.Missing)
		if d.Missing == nil {
			d.Missing = []string{}
		}
	}
	return d, nil
}

// extractObject returns the outermost {...} span of text, or "".
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// NormalizeFields trims, de-duplicates and canonicalizes field names.
// "Attendees", "desired_timeframe" and "Desired Timeframe" all map onto the
// canonical job field names; unknown names are kept as given.
func NormalizeFields(fields []string) []string {
	var out []string
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		name := CanonicalField(f)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// CanonicalField maps a loosely spelled field name onto a known form field.
func CanonicalField(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	squashed := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	for _, known := range job.KnownFields {
		if strings.ToLower(known) == squashed {
			return known
		}
	}
	return name
}

// CheckDecision rejects a missing decision or one whose verdict is neither
// APPROVE nor DECLINE.
func CheckDecision(d *job.Decision) error {
	if d == nil {
		return fmt.Errorf("%w: no decision returned", job.ErrParse)
	}
	if d.Decision != job.Approve && d.Decision != job.Decline {
		return fmt.Errorf("%w: unknown verdict %q", job.ErrParse, d.Decision)
	}
	return nil
}

// SafeDecline is the fail-safe judgment used when no oracle answer is usable.
func SafeDecline(err error) *job.Decision {
	return &job.Decision{
		Decision:  job.Decline,
		Rationale: fmt.Sprintf("Decision service unavailable, not scheduling a meeting: %v", err),
		Missing:   []string{},
	}
}
