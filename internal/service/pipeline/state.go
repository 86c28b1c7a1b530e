package pipeline

// State enumerates the per-turn state machine. Transitions are handled
// exhaustively in the controller loop; exactly one terminal state is
// reached per turn.
type State int

const (
	StateReceived State = iota
	StateEmergencyChecked
	StateGenerating
	StateValidating
	StateRegenerating
	StateEmergencyResponse // terminal
	StateDisclaimed        // terminal, success
	StateFallback          // terminal, degraded
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "RECEIVED"
	case StateEmergencyChecked:
		return "EMERGENCY_CHECKED"
	case StateGenerating:
		return "GENERATING"
	case StateValidating:
		return "VALIDATING"
	case StateRegenerating:
		return "REGENERATING"
	case StateEmergencyResponse:
		return "EMERGENCY_RESPONSE"
	case StateDisclaimed:
		return "DISCLAIMED"
	case StateFallback:
		return "FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state ends the turn.
func (s State) Terminal() bool {
	switch s {
	case StateEmergencyResponse, StateDisclaimed, StateFallback:
		return true
	default:
		return false
	}
}
