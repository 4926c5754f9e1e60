package oracle

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/teemow/meetgate/internal/job"
)

// Word stems that signal an explicit request for live time.
var requestStems = []string{
	"meeting", "meet", "call", "sync", "schedul", "huddle", "catchup", "1:1", "standup",
}

// Word stems that signal a reason only a live conversation can serve.
var justificationStems = []string{
	"strateg", "align", "resourc", "decision", "decide", "urgent", "blocker", "blocked",
	"roadmap", "review", "plan", "incident", "escalat", "deadline", "launch", "budget",
	"hiring", "priorit", "outage", "contract", "kickoff", "retro", "postmortem",
}

// HeuristicOracle is a deterministic keyword policy. It approves only when
// the cumulative transcript both asks for a meeting and gives a reason from
// the justification list or the policy checklist.
type HeuristicOracle struct{}

// NewHeuristicOracle creates a HeuristicOracle.
func NewHeuristicOracle() *HeuristicOracle {
	return &HeuristicOracle{}
}

// Name implements Oracle.
func (h *HeuristicOracle) Name() string { return TypeHeuristic }

// Evaluate implements DecisionOracle. It leaves Missing nil so the caller
// falls back to the policy's required fields.
func (h *HeuristicOracle) Evaluate(ctx context.Context, transcript string, policy job.Policy) (*job.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", job.ErrOracleUnavailable, err)
	}

	words := tokenize(transcript)
	asked := matchStem(words, requestStems) != "" || strings.Contains(strings.ToLower(transcript), "catch up")
	reason := matchStem(words, justificationStems)
	if reason == "" {
		reason = matchChecklist(transcript, policy.Checklist)
	}

	switch {
	case !asked:
		return &job.Decision{
			Decision:  job.Decline,
			Rationale: "No meeting was requested; this can be answered asynchronously.",
		}, nil
	case reason == "":
		return &job.Decision{
			Decision:  job.Decline,
			Rationale: "A meeting was requested without a decision, blocker or goal that needs live discussion.",
		}, nil
	default:
		return &job.Decision{
			Decision:  job.Approve,
			Rationale: fmt.Sprintf("Meeting requested with a concrete reason (%s).", reason),
		}, nil
	}
}

// Reply implements ResponseOracle. It acknowledges the latest user message and
// asks at most one question.
func (h *HeuristicOracle) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", job.ErrOracleUnavailable, err)
	}

	var b strings.Builder
	if last := lastUserContent(req.Tail); last != "" {
		fmt.Fprintf(&b, "Thanks, noted: %q. ", summarize(last, 80))
	}

	switch {
	case req.Decision.Approved() && len(req.Missing) == 0:
		b.WriteString("That is enough to put time on the calendar; submit the details to book it.")
	case req.Decision.Approved():
		fmt.Fprintf(&b, "Could you share the %s?", strings.Join(req.Missing, ", "))
	case req.Decision != nil && strings.Contains(req.Decision.Rationale, "without a decision"):
		b.WriteString("What decision or blocker would a live meeting resolve?")
	default:
		b.WriteString("This looks like something we can handle here without a meeting. If you do need live time, what should it decide?")
	}
	return b.String(), nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ':'
	})
}

func matchStem(words, stems []string) string {
	for _, w := range words {
		for _, stem := range stems {
			if strings.HasPrefix(w, stem) {
				return w
			}
		}
	}
	return ""
}

func matchChecklist(transcript string, checklist []string) string {
	lower := strings.ToLower(transcript)
	for _, item := range checklist {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" && strings.Contains(lower, item) {
			return item
		}
	}
	return ""
}

func lastUserContent(tail []job.Message) string {
	for i := len(tail) - 1; i >= 0; i-- {
		if tail[i].Role == job.RoleUser {
			return strings.TrimSpace(tail[i].Content)
		}
	}
	return ""
}

// summarize shortens s to at most n runes on a word boundary.
func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
