package workflow

// State represents one state of a configured state machine. The set of valid
// states is not global: each builder owns the states it was configured with,
// so several machines (hospital stays, invoice pipeline) can share the
// machinery without sharing a state space.
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// Trigger represents an event that can cause a state transition
type Trigger string

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
