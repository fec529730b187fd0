package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced claim, stay, invoice or step
	// does not exist. Surfaced to the caller, no retry.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a transition is attempted from a
	// state that does not permit it. Always raised before any mutation.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnauthorized is returned when the actor's role or identity does not
	// match the operation's allowed set. Raised before any mutation.
	ErrUnauthorized = errors.New("actor not authorized")

	// ErrStageAlreadyDecided is returned on a repeat decision for an invoice
	// stage. A stage can only be decided once.
	ErrStageAlreadyDecided = fmt.Errorf("%w: stage already decided", ErrInvalidTransition)
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
