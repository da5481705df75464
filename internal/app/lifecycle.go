package app

import (
	"errors"
	"sync"

	"github.com/bft-labs/bulkship/internal/ports"
)

// ErrInvalidTransition is returned when a lifecycle transition is not allowed
// from the current state. Losing a shutdown race surfaces as this error.
var ErrInvalidTransition = errors.New("bulkship: invalid session state transition")

// State represents the lifecycle state of a session.
type State int

const (
	StateActive State = iota
	StateDraining
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(session string, previous, current State, reason string)
}

// Lifecycle manages the state machine for a session.
// Active -> Draining -> Stopped; every other transition is rejected, so each
// state is entered at most once.
type Lifecycle struct {
	mu           sync.RWMutex
	name         string
	state        State
	logger       ports.Logger
	eventEmitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateActive.
func NewLifecycle(name string, logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		name:         name,
		state:        StateActive,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns ErrInvalidTransition if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	oldState, err := l.transition(newState)
	if err != nil {
		return err
	}
	l.announce(oldState, newState, reason)
	return nil
}

// transition changes the state without notifying anyone. Callers holding
// their own lock use it and announce after releasing that lock.
func (l *Lifecycle) transition(newState State) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	oldState := l.state
	valid := (oldState == StateActive && newState == StateDraining) ||
		(oldState == StateDraining && newState == StateStopped)
	if !valid {
		return oldState, ErrInvalidTransition
	}
	l.state = newState
	return oldState, nil
}

// announce reports a completed transition to the emitter and the logger.
func (l *Lifecycle) announce(oldState, newState State, reason string) {
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(l.name, oldState, newState, reason)
	}

	l.logger.Debug("session state transition",
		ports.String("session", l.name),
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)
}

// Accepting returns true while the session takes new input.
func (l *Lifecycle) Accepting() bool {
	return l.State() == StateActive
}
