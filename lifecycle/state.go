package lifecycle

// State is the controller's process-visible lifecycle state. Exactly one
// controller instance owns the current value; it is mutated only inside the
// controller's own method and tick bodies.
type State int

const (
	// StateStopped means the server is not running. Start is legal.
	StateStopped State = iota
	// StateStarting means startup validation is in progress.
	StateStarting
	// StateRunning means the server is healthy and serving.
	StateRunning
	// StateDegraded means the server keeps serving under resource or
	// health stress. Only the periodic tick moves a server in or out of
	// this state.
	StateDegraded
	// StateShuttingDown means an orderly stop is in progress.
	StateShuttingDown
	// StateErrored means startup failed or a fatal error occurred.
	// Start is legal again from here.
	StateErrored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDegraded:
		return "degraded"
	case StateShuttingDown:
		return "shutting_down"
	case StateErrored:
		return "error"
	default:
		return "unknown"
	}
}

// legalTransitions holds the state machine's edges. A fatal error may move
// any state to StateErrored, so that edge is handled separately.
var legalTransitions = map[State][]State{
	StateStopped:      {StateStarting},
	StateErrored:      {StateStarting, StateShuttingDown},
	StateStarting:     {StateRunning, StateErrored},
	StateRunning:      {StateDegraded, StateShuttingDown},
	StateDegraded:     {StateRunning, StateShuttingDown},
	StateShuttingDown: {StateStopped},
}

// canTransition reports whether from -> to is a legal edge.
func canTransition(from, to State) bool {
	if to == StateErrored {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
