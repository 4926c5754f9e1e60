package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/job"
)

func drain(t *testing.T, sub *Subscription, n int) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				t.Fatalf("channel closed after %d of %d events", len(got), n)
			}
			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(got), n)
		}
	}
	return got
}

func isClosed(sub *Subscription) bool {
	select {
	case _, ok := <-sub.Events():
		return !ok
	case <-time.After(time.Second):
		return false
	}
}

func TestRegistry_PublishWithoutSubscriberIsDropped(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Publish(Event{Type: TypeLog, JobID: "j1", Data: LogData{Msg: "nobody listening"}})
	r.Close("j1")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_InitialEventsComeFirstInOrder(t *testing.T) {
	r := NewRegistry(nil, nil)
	sub := r.Attach(context.Background(), "j1",
		Event{Type: TypeLog, JobID: "j1", Data: LogData{Msg: "ready"}},
		Event{Type: TypeState, JobID: "j1", Data: StateData{State: job.StateAwaitingInput}},
	)

	r.Publish(Event{Type: TypeTool, JobID: "j1"})
	r.Publish(Event{Type: TypeDecision, JobID: "j1"})
	r.Publish(Event{Type: TypeChat, JobID: "j1"})

	got := drain(t, sub, 5)
	types := make([]Type, len(got))
	for i, e := range got {
		types[i] = e.Type
	}
	assert.Equal(t, []Type{TypeLog, TypeState, TypeTool, TypeDecision, TypeChat}, types)
}

func TestRegistry_EventsAreScopedToJob(t *testing.T) {
	r := NewRegistry(nil, nil)
	a := r.Attach(context.Background(), "a")
	b := r.Attach(context.Background(), "b")

	r.Publish(Event{Type: TypeLog, JobID: "a", Data: LogData{Msg: "for a"}})
	r.Publish(Event{Type: TypeLog, JobID: "b", Data: LogData{Msg: "for b"}})

	assert.Equal(t, "for a", drain(t, a, 1)[0].Data.(LogData).Msg)
	assert.Equal(t, "for b", drain(t, b, 1)[0].Data.(LogData).Msg)
}

func TestRegistry_LastSubscriberWins(t *testing.T) {
	r := NewRegistry(nil, nil)
	first := r.Attach(context.Background(), "j1")
	second := r.Attach(context.Background(), "j1")

	assert.True(t, isClosed(first), "previous subscriber must be detached")
	assert.Equal(t, 1, r.Len())

	r.Publish(Event{Type: TypeState, JobID: "j1"})
	assert.Equal(t, TypeState, drain(t, second, 1)[0].Type)

	// A stale subscription detaching must not remove its replacement.
	first.Detach()
	assert.True(t, r.Attached("j1"))
}

func TestRegistry_CloseEndsStream(t *testing.T) {
	r := NewRegistry(nil, nil)
	sub := r.Attach(context.Background(), "j1")

	r.Publish(Event{Type: TypeDone, JobID: "j1", Data: DoneData{Status: DoneScheduled}})
	r.Close("j1")

	got := drain(t, sub, 1)
	assert.Equal(t, TypeDone, got[0].Type)
	assert.True(t, isClosed(sub))

	// Further sends and closes are no-ops.
	r.Publish(Event{Type: TypeLog, JobID: "j1"})
	r.Close("j1")
	assert.False(t, r.Attached("j1"))
}

func TestRegistry_ContextCancelDetaches(t *testing.T) {
	r := NewRegistry(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	sub := r.Attach(ctx, "j1")

	cancel()

	require.Eventually(t, func() bool { return !r.Attached("j1") }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, isClosed(sub))
}

func TestRegistry_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.bufferSize = 2
	sub := r.Attach(context.Background(), "j1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			r.Publish(Event{Type: TypeLog, JobID: "j1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	assert.Len(t, drain(t, sub, 2), 2)
}

func TestRegistry_Shutdown(t *testing.T) {
	r := NewRegistry(nil, nil)
	a := r.Attach(context.Background(), "a")
	b := r.Attach(context.Background(), "b")

	r.Shutdown()

	assert.True(t, isClosed(a))
	assert.True(t, isClosed(b))
	assert.Equal(t, 0, r.Len())
}
