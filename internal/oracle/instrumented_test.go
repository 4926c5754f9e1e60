package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/job"
)

type failingOracle struct{ err error }

func (f failingOracle) Name() string { return "failing" }

func (f failingOracle) Evaluate(context.Context, string, job.Policy) (*job.Decision, error) {
	return nil, f.err
}

func (f failingOracle) Reply(context.Context, ReplyRequest) (string, error) {
	return "", f.err
}

type stubDecider struct{ d *job.Decision }

func (s stubDecider) Name() string { return "stub" }

func (s stubDecider) Evaluate(context.Context, string, job.Policy) (*job.Decision, error) {
	return s.d, nil
}

func (s stubDecider) Reply(context.Context, ReplyRequest) (string, error) { return "ok", nil }

func TestInstrumented_RejectsUnusableDecision(t *testing.T) {
	tests := []struct {
		name string
		d    *job.Decision
	}{
		{name: "nil decision", d: nil},
		{name: "unknown verdict", d: &job.Decision{Decision: "MAYBE"}},
		{name: "empty verdict", d: &job.Decision{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Instrument(stubDecider{d: tt.d}, nil)
			var (
				d   *job.Decision
				err error
			)
			assert.NotPanics(t, func() {
				d, err = o.Evaluate(context.Background(), "x", job.Policy{})
			})
			assert.ErrorIs(t, err, job.ErrParse)
			assert.Nil(t, d)
		})
	}
}

func TestCheckDecision(t *testing.T) {
	assert.NoError(t, CheckDecision(&job.Decision{Decision: job.Approve}))
	assert.NoError(t, CheckDecision(&job.Decision{Decision: job.Decline}))
	assert.ErrorIs(t, CheckDecision(nil), job.ErrParse)
	assert.ErrorIs(t, CheckDecision(&job.Decision{Decision: "approve"}), job.ErrParse)
}

func TestInstrumented_PassesThrough(t *testing.T) {
	o := Instrument(NewHeuristicOracle(), nil)
	assert.Equal(t, TypeHeuristic, o.Name())

	d, err := o.Evaluate(context.Background(), "Let's meet to decide the launch date", job.Policy{})
	require.NoError(t, err)
	assert.Equal(t, job.Approve, d.Decision)

	reply, err := o.Reply(context.Background(), ReplyRequest{Decision: d})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}

func TestInstrumented_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	o := Instrument(failingOracle{err: boom}, nil)

	_, err := o.Evaluate(context.Background(), "x", job.Policy{})
	assert.ErrorIs(t, err, boom)

	_, err = o.Reply(context.Background(), ReplyRequest{})
	assert.ErrorIs(t, err, boom)
}
