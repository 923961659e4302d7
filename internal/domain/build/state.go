package build

// State is a pipeline controller state.
type State string

// Controller states. Done and Failed are the only terminal states.
const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateFreezing   State = "freezing"
	StatePackaging  State = "packaging"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// IsTerminal reports whether the state ends the pipeline.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// controller transition. Every non-terminal state may fail; forward
// progress follows the fixed stage order.
func (s State) CanTransitionTo(next State) bool {
	if next == StateFailed {
		return !s.IsTerminal()
	}

	switch s {
	case StateIdle:
		return next == StateValidating
	case StateValidating:
		// Packaging directly is the skip-freeze path.
		return next == StateFreezing || next == StatePackaging
	case StateFreezing:
		return next == StatePackaging
	case StatePackaging:
		return next == StateDone
	default:
		return false
	}
}
