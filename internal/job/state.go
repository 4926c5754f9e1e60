package job

import "fmt"

// State is the lifecycle state of a job.
type State string

// Job lifecycle states.
const (
	StateAwaitingInput        State = "awaiting_input"
	StateEvaluating           State = "evaluating"
	StateApprovedNeedsDetails State = "approved_needs_details"
	StateReadyToSchedule      State = "ready_to_schedule"
	StateScheduling           State = "scheduling"
	StateScheduled            State = "scheduled"
	StateNotified             State = "notified"
	StateError                State = "error"
)

// transitions lists the allowed edges. Terminal states have no entry.
var transitions = map[State][]State{
	StateAwaitingInput: {StateEvaluating},
	StateEvaluating: {
		StateAwaitingInput,
		StateApprovedNeedsDetails,
		StateReadyToSchedule,
	},
	// A new message in either approved state re-judges the whole transcript,
	// so both may go back to evaluating.
	StateApprovedNeedsDetails: {StateReadyToSchedule, StateEvaluating},
	StateReadyToSchedule:      {StateScheduling, StateEvaluating},
	StateScheduling:           {StateNotified, StateError},
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateAwaitingInput, StateEvaluating, StateApprovedNeedsDetails,
		StateReadyToSchedule, StateScheduling, StateScheduled, StateNotified, StateError:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateScheduled, StateNotified, StateError:
		return true
	}
	return false
}

// AcceptsMessages reports whether a user message may be ingested in state s.
// A job found in evaluating was interrupted mid-pipeline and is re-evaluated.
func (s State) AcceptsMessages() bool {
	switch s {
	case StateAwaitingInput, StateEvaluating, StateApprovedNeedsDetails, StateReadyToSchedule:
		return true
	}
	return false
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the job to the next state, refusing edges that do not exist.
// The error wraps ErrConflict.
func (j *Job) Transition(to State) error {
	if !CanTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrConflict, j.State, to)
	}
	j.State = to
	return nil
}
