package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/logging"
	"github.com/teemow/meetgate/internal/oracle"
	"github.com/teemow/meetgate/internal/store"
)

// Broker is the event sink the orchestrator emits to and attaches
// subscribers on. *events.Registry implements it.
type Broker interface {
	events.Sink
	Attach(ctx context.Context, jobID string, initial ...events.Event) *events.Subscription
}

// Config holds the orchestration policy.
type Config struct {
	// Policy is handed to the decision oracle; its RequiredFields are the
	// fallback missing list when the oracle does not name one.
	Policy job.Policy
	// Availability is the slot preview request made after an APPROVE.
	Availability calendar.SuggestRequest
	// Requester identifies the person asking for time when a job does not
	// name one.
	Requester string
	// MeetingDuration is used when a submission does not choose a slot.
	MeetingDuration time.Duration
	// TailSize is how many transcript entries the response oracle sees.
	TailSize int
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() Config {
	return Config{
		Policy: job.Policy{
			RequiredFields: []string{job.FieldTopic, job.FieldAttendees, job.FieldDesiredTimeframe},
		},
		Availability: calendar.SuggestRequest{
			WindowDays:       5,
			SlotDurationMins: 30,
			DayStart:         "09:00",
			DayEnd:           "17:00",
			OwnerOnly:        true,
		},
		MeetingDuration: 30 * time.Minute,
		TailSize:        6,
	}
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Store     store.Store
	Events    Broker
	Decider   oracle.DecisionOracle
	Responder oracle.ResponseOracle
	Calendar  calendar.Provider

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger

	// Now and NewID default to time.Now and uuid strings.
	Now   func() time.Time
	NewID func() string
}

// Orchestrator drives meeting-request jobs through the gatekeeping state
// machine. Operations on one job are serialized; different jobs proceed
// concurrently.
type Orchestrator struct {
	cfg       Config
	store     store.Store
	events    Broker
	decider   oracle.DecisionOracle
	responder oracle.ResponseOracle
	calendar  calendar.Provider
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	now       func() time.Time
	newID     func() string
	locks     *keyedMutex
}

// New creates an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("orchestrator: store is required")
	case deps.Events == nil:
		return nil, errors.New("orchestrator: event broker is required")
	case deps.Decider == nil || deps.Responder == nil:
		return nil, errors.New("orchestrator: decision and response oracles are required")
	case deps.Calendar == nil:
		return nil, errors.New("orchestrator: calendar provider is required")
	}

	def := DefaultConfig()
	if cfg.MeetingDuration <= 0 {
		cfg.MeetingDuration = def.MeetingDuration
	}
	if cfg.TailSize <= 0 {
		cfg.TailSize = def.TailSize
	}
	if cfg.Availability.WindowDays <= 0 {
		cfg.Availability.WindowDays = def.Availability.WindowDays
	}
	if cfg.Availability.SlotDurationMins <= 0 {
		cfg.Availability.SlotDurationMins = def.Availability.SlotDurationMins
	}

	o := &Orchestrator{
		cfg:       cfg,
		store:     deps.Store,
		events:    deps.Events,
		decider:   deps.Decider,
		responder: deps.Responder,
		calendar:  deps.Calendar,
		logger:    logging.WithComponent(deps.Logger, "orchestrator"),
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		now:       deps.Now,
		newID:     deps.NewID,
		locks:     newKeyedMutex(),
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = func() string { return uuid.New().String() }
	}
	return o, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// StartRequest seeds a new job.
type StartRequest struct {
	InitialMessage string
	Requester      string
}

// Start creates a job in awaiting_input. A non-empty initial message is
// recorded as the first user message but is not evaluated until the next
// ReceiveMessage.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*job.Job, error) {
	now := o.now()
	j := job.New(o.newID(), now)
	j.Requester = strings.TrimSpace(req.Requester)
	if j.Requester == "" {
		j.Requester = o.cfg.Requester
	}
	if msg := strings.TrimSpace(req.InitialMessage); msg != "" {
		j.Append(job.RoleUser, job.AgentUser, msg, now)
	}

	if err := o.store.Write(ctx, j); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	o.logger.Info("job started", logging.JobID(j.ID), logging.State(string(j.State)), "seeded", len(j.Messages) > 0)
	return j, nil
}

// Get returns the stored job.
func (o *Orchestrator) Get(ctx context.Context, id string) (*job.Job, error) {
	return o.store.Read(ctx, id)
}

// List returns the ids of all stored jobs.
func (o *Orchestrator) List(ctx context.Context) ([]string, error) {
	return o.store.List(ctx)
}

// Subscribe attaches a new subscriber to the job's event stream, replacing
// any previous one. The stream starts with a readiness log and a snapshot of
// the stored state. The subscription is detached when ctx is done. A job in a
// terminal state gets the snapshot and then a closed stream.
//
// The job lock is held across the read and the attach so that no transition
// lands between the snapshot and the first live event.
func (o *Orchestrator) Subscribe(ctx context.Context, id string) (*events.Subscription, error) {
	j, unlock, err := o.lockedJob(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	now := o.now()
	sub := o.events.Attach(ctx, id,
		events.Event{Type: events.TypeLog, JobID: id, Data: events.LogData{Msg: "ready"}, At: now},
		events.Event{Type: events.TypeState, JobID: id, Data: events.StateData{State: j.State}, At: now},
	)
	o.logger.Debug("subscriber attached", logging.JobID(id), logging.State(string(j.State)), "sub_id", sub.ID())
	if j.State.Terminal() {
		o.events.Close(id)
	}
	return sub, nil
}

// emit publishes one event for jobID.
func (o *Orchestrator) emit(jobID string, t events.Type, data any) {
	o.events.Publish(events.Event{Type: t, JobID: jobID, Data: data, At: o.now()})
}

// transition moves j to state to and records the edge.
func (o *Orchestrator) transition(ctx context.Context, j *job.Job, to job.State) error {
	from := j.State
	if err := j.Transition(to); err != nil {
		return err
	}
	j.UpdatedAt = o.now()
	o.metrics.RecordJobTransition(ctx, j.ID, string(from), string(to))
	o.logger.Debug("job transition", logging.JobID(j.ID), "from", string(from), "to", string(to))
	return nil
}

// save persists j, stamping UpdatedAt.
func (o *Orchestrator) save(ctx context.Context, j *job.Job) error {
	j.UpdatedAt = o.now()
	if err := o.store.Write(ctx, j); err != nil {
		return fmt.Errorf("failed to persist job %s: %w", j.ID, err)
	}
	return nil
}

// lockedJob serializes on id and loads the job. The caller must call the
// returned unlock func.
func (o *Orchestrator) lockedJob(ctx context.Context, id string) (*job.Job, func(), error) {
	unlock := o.locks.Lock(id)
	j, err := o.store.Read(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return j, unlock, nil
}
