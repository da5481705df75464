package bulkship

import "github.com/bft-labs/bulkship/internal/app"

// State is the lifecycle state of one connection.
type State int

const (
	StateActive State = iota
	StateDraining
	StateStopped
)

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

// StateChangeEvent describes a connection moving between lifecycle states.
type StateChangeEvent struct {
	Handle   Handle
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives connection lifecycle events.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// sessionEvents adapts session lifecycle callbacks to metrics and the
// user's EventHandler.
type sessionEvents struct {
	handle  Handle
	reg     *Registry
	handler EventHandler
}

func (e *sessionEvents) OnStateChange(_ string, previous, current app.State, reason string) {
	if current == app.StateStopped {
		e.reg.collector.SessionClosed()
	}
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Handle:   e.handle,
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateDraining:
		return StateDraining
	case app.StateStopped:
		return StateStopped
	default:
		return StateActive
	}
}
