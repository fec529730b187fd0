package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownState is returned when a machine is built from a state the
	// builder was never configured with
	ErrUnknownState = errors.New("unknown state")

	// ErrGuardFailed is returned when all guard conditions for a trigger fail
	ErrGuardFailed = errors.New("guard condition failed")
)
