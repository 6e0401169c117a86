package statemachine

import "context"

// State is a named state of a Machine.
type State interface {
	Name() string
}

// Event is a named trigger for a transition.
type Event interface {
	Name() string
}

// Guard decides at fire time whether a transition may proceed.
type Guard func(ctx context.Context, from State, event Event) bool

// Action runs before the state changes. An error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event) error

// Hook observes a committed transition. Hooks run outside the machine lock,
// so they may read the machine.
type Hook func(from, to State, event Event)

// Transition is a state change triggered by Event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StateMachine is a concurrency-safe finite state machine.
type StateMachine interface {
	Current() State
	Is(state State) bool
	Fire(ctx context.Context, event Event) error
	CanFire(ctx context.Context, event Event) bool
	Reset()
}

// StringState is a State backed by a string.
type StringState string

// Name returns s.
func (s StringState) Name() string { return string(s) }

// StringEvent is an Event backed by a string.
type StringEvent string

// Name returns e.
func (e StringEvent) Name() string { return string(e) }
