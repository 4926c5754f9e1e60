package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/oracle"
	"github.com/teemow/meetgate/internal/store"
)

// scriptedOracle returns a fixed decision and records every transcript.
type scriptedOracle struct {
	mu          sync.Mutex
	decision    *job.Decision
	evalErr     error
	replyErr    error
	transcripts []string
	replies     []oracle.ReplyRequest
}

func (s *scriptedOracle) Name() string { return "scripted" }

func (s *scriptedOracle) Evaluate(ctx context.Context, transcript string, policy job.Policy) (*job.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, transcript)
	if s.evalErr != nil {
		return nil, s.evalErr
	}
	if s.decision == nil {
		return nil, nil
	}
	d := *s.decision
	return &d, nil
}

func (s *scriptedOracle) Reply(ctx context.Context, req oracle.ReplyRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, req)
	if s.replyErr != nil {
		return "", s.replyErr
	}
	return "scripted reply", nil
}

// recordingDecider wraps a real decider and records its inputs.
type recordingDecider struct {
	next        oracle.DecisionOracle
	transcripts []string
}

func (r *recordingDecider) Evaluate(ctx context.Context, transcript string, policy job.Policy) (*job.Decision, error) {
	r.transcripts = append(r.transcripts, transcript)
	return r.next.Evaluate(ctx, transcript, policy)
}

// fakeCalendar records bookings and can be told to fail.
type fakeCalendar struct {
	mu         sync.Mutex
	suggestErr error
	bookErr    error
	bookings   []calendar.BookRequest
}

func (f *fakeCalendar) Suggest(ctx context.Context, req calendar.SuggestRequest) ([]job.Slot, error) {
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	start := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	return []job.Slot{{Start: start, End: start.Add(30 * time.Minute)}}, nil
}

func (f *fakeCalendar) Book(ctx context.Context, req calendar.BookRequest) (*job.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	f.bookings = append(f.bookings, req)
	return &job.Booking{
		EventID:  fmt.Sprintf("evt-%d", len(f.bookings)),
		HTMLLink: "https://calendar.example/evt",
		Slot:     req.Slot,
	}, nil
}

type harness struct {
	orch     *Orchestrator
	store    *store.MemoryStore
	registry *events.Registry
	calendar *fakeCalendar
}

// newHarness builds an orchestrator over in-memory collaborators. A nil
// decider uses the heuristic oracle for both roles.
func newHarness(t *testing.T, decider oracle.DecisionOracle, responder oracle.ResponseOracle) *harness {
	t.Helper()
	h := &harness{
		store:    store.NewMemoryStore(),
		registry: events.NewRegistry(nil, nil),
		calendar: &fakeCalendar{},
	}
	heuristic := oracle.NewHeuristicOracle()
	if decider == nil {
		decider = heuristic
	}
	if responder == nil {
		responder = heuristic
	}

	clock := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	orch, err := New(DefaultConfig(), Deps{
		Store:     h.store,
		Events:    h.registry,
		Decider:   decider,
		Responder: responder,
		Calendar:  h.calendar,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}

// start creates a job and attaches a subscriber, discarding the snapshot.
func (h *harness) start(t *testing.T) (string, *events.Subscription) {
	t.Helper()
	j, err := h.orch.Start(context.Background(), StartRequest{Requester: "alice@example.com"})
	require.NoError(t, err)
	sub, err := h.orch.Subscribe(context.Background(), j.ID)
	require.NoError(t, err)
	got := pending(sub)
	require.Len(t, got, 2)
	return j.ID, sub
}

// pending returns the events already queued for sub without blocking.
func pending(sub *events.Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func types(evs []events.Event) []events.Type {
	out := make([]events.Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

func find(evs []events.Event, t events.Type) []events.Event {
	var out []events.Event
	for _, e := range evs {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func lastState(evs []events.Event) job.State {
	states := find(evs, events.TypeState)
	if len(states) == 0 {
		return ""
	}
	return states[len(states)-1].Data.(events.StateData).State
}

var errBoom = errors.New("boom")
