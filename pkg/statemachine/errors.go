package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent      = errors.New("statemachine: nil event")
)

// ErrNoTransitionAvailable means nothing is registered for the state and
// event pair.
type ErrNoTransitionAvailable struct {
	StateName string
	EventName string
}

// Error implements error.
func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("statemachine: %q has no transition on %q", e.StateName, e.EventName)
}

// ErrTransitionRejected means guards refused every candidate transition.
type ErrTransitionRejected struct {
	StateName string
	EventName string
}

// Error implements error.
func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("statemachine: guards rejected %q from %q", e.EventName, e.StateName)
}

// IsNoTransitionAvailableError reports whether err wraps ErrNoTransitionAvailable.
func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

// IsTransitionRejectedError reports whether err wraps ErrTransitionRejected.
func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}
