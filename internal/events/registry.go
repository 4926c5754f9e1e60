package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/logging"
)

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 256

// Sink receives the events the orchestrator emits for a job.
type Sink interface {
	// Publish delivers e to the subscriber of e.JobID, if any.
	Publish(e Event)

	// Close ends the current subscriber's stream for jobID.
	Close(jobID string)
}

// Subscription is one attached consumer of a job's event stream.
type Subscription struct {
	id    string
	jobID string
	ch    chan Event
	reg   *Registry
}

// ID returns the subscription id.
func (s *Subscription) ID() string { return s.id }

// JobID returns the job this subscription is attached to.
func (s *Subscription) JobID() string { return s.jobID }

// Events returns the ordered event channel. It is closed when the job's
// stream ends, when a newer subscriber replaces this one, or on Detach.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Detach removes the subscription if it is still the current one.
func (s *Subscription) Detach() {
	s.reg.detach(s.jobID, s.id)
}

// Registry maps job ids to their single current subscriber.
//
// Attaching a new subscriber to a job closes the previous subscriber's
// channel (last-subscriber-wins). Events published while no subscriber is
// attached are dropped.
type Registry struct {
	mu         sync.Mutex
	subs       map[string]*Subscription
	bufferSize int
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewRegistry creates a registry. Pass nil logger for default; metrics may be nil.
func NewRegistry(logger *slog.Logger, metrics *instrumentation.Metrics) *Registry {
	return &Registry{
		subs:       make(map[string]*Subscription),
		bufferSize: DefaultBufferSize,
		logger:     logging.WithComponent(logger, "events"),
		metrics:    metrics,
	}
}

// Attach registers a new subscriber for jobID and enqueues initial before any
// later Publish can reach it. The subscription is detached when ctx is done.
func (r *Registry) Attach(ctx context.Context, jobID string, initial ...Event) *Subscription {
	size := r.bufferSize
	if len(initial) > size {
		size = len(initial)
	}
	sub := &Subscription{
		id:    uuid.New().String(),
		jobID: jobID,
		ch:    make(chan Event, size),
		reg:   r,
	}
	for _, e := range initial {
		sub.ch <- e
	}

	r.mu.Lock()
	prev := r.subs[jobID]
	r.subs[jobID] = sub
	if prev != nil {
		close(prev.ch)
	}
	r.mu.Unlock()

	if prev != nil {
		r.logger.Debug("subscriber replaced", logging.JobID(jobID), "previous", prev.id, "sub_id", sub.id)
	} else {
		r.metrics.IncrementActiveSubscribers(context.Background())
		r.logger.Debug("subscriber attached", logging.JobID(jobID), "sub_id", sub.id)
	}

	go func() {
		<-ctx.Done()
		sub.Detach()
	}()

	return sub
}

// Publish delivers e to the job's current subscriber without blocking.
// Events for jobs without a subscriber, or for a subscriber whose buffer is
// full, are dropped.
func (r *Registry) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[e.JobID]
	if !ok {
		return
	}
	select {
	case sub.ch <- e:
	default:
		r.logger.Warn("dropped event for slow subscriber",
			logging.JobID(e.JobID),
			"event", string(e.Type),
			"sub_id", sub.id)
	}
}

// Close ends the stream of the job's current subscriber. Later publishes for
// the job are dropped until a new subscriber attaches.
func (r *Registry) Close(jobID string) {
	r.mu.Lock()
	sub, ok := r.subs[jobID]
	if ok {
		delete(r.subs, jobID)
		close(sub.ch)
	}
	r.mu.Unlock()

	if ok {
		r.metrics.DecrementActiveSubscribers(context.Background())
		r.logger.Debug("stream closed", logging.JobID(jobID), "sub_id", sub.id)
	}
}

// Attached reports whether jobID currently has a subscriber.
func (r *Registry) Attached(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[jobID]
	return ok
}

// Len returns the number of attached subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Shutdown closes every attached stream.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]*Subscription)
	for _, sub := range subs {
		close(sub.ch)
	}
	r.mu.Unlock()

	for range subs {
		r.metrics.DecrementActiveSubscribers(context.Background())
	}
	r.logger.Debug("registry shut down", "closed", len(subs))
}

func (r *Registry) detach(jobID, subID string) {
	r.mu.Lock()
	sub, ok := r.subs[jobID]
	if !ok || sub.id != subID {
		r.mu.Unlock()
		return
	}
	delete(r.subs, jobID)
	close(sub.ch)
	r.mu.Unlock()

	r.metrics.DecrementActiveSubscribers(context.Background())
	r.logger.Debug("subscriber detached", logging.JobID(jobID), "sub_id", subID)
}
