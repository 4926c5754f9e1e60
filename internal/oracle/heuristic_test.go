package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/job"
)

func TestHeuristicOracle_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		checklist  []string
		want       job.Verdict
	}{
		{
			name:       "meeting with strategy reason",
			transcript: "Can we have a meeting about Q4 strategy with the team to align on resourcing?",
			want:       job.Approve,
		},
		{
			name:       "support question",
			transcript: "How do I reset my password?",
			want:       job.Decline,
		},
		{
			name:       "meeting without justification",
			transcript: "What's the difference between X and Y?\nCan we have a meeting?",
			want:       job.Decline,
		},
		{
			name:       "justification spread across messages",
			transcript: "We are blocked on the vendor contract.\nCould we schedule a call this week?",
			want:       job.Approve,
		},
		{
			name:       "policy checklist counts as a reason",
			transcript: "Can we meet about the quarterly OKRs?",
			checklist:  []string{"okrs"},
			want:       job.Approve,
		},
	}

	h := NewHeuristicOracle()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := h.Evaluate(context.Background(), tt.transcript, job.Policy{Checklist: tt.checklist})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Decision)
			assert.NotEmpty(t, d.Rationale)
			assert.Nil(t, d.Missing)
		})
	}
}

func TestHeuristicOracle_EvaluateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHeuristicOracle().Evaluate(ctx, "meeting about strategy", job.Policy{})
	assert.ErrorIs(t, err, job.ErrOracleUnavailable)
}

func TestHeuristicOracle_Reply(t *testing.T) {
	h := NewHeuristicOracle()
	tail := []job.Message{{Role: job.RoleUser, Agent: job.AgentUser, Content: "Can we sync on the roadmap?"}}

	t.Run("approved with missing details asks for them", func(t *testing.T) {
		reply, err := h.Reply(context.Background(), ReplyRequest{
			Tail:     tail,
			Missing:  []string{job.FieldAttendees},
			Decision: &job.Decision{Decision: job.Approve},
		})
		require.NoError(t, err)
		assert.Contains(t, reply, "roadmap")
		assert.Contains(t, reply, job.FieldAttendees)
	})

	t.Run("declined asks at most one question", func(t *testing.T) {
		reply, err := h.Reply(context.Background(), ReplyRequest{
			Tail:     tail,
			Decision: &job.Decision{Decision: job.Decline, Rationale: "No meeting was requested."},
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, countRune(reply, '?'), 1+countRune(tail[0].Content, '?'))
	})
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short", summarize("  short  ", 20))
	got := summarize("one two three four five six seven", 15)
	assert.Equal(t, "one two three...", got)
}
