package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is the in-memory StateMachine. Transitions are indexed by
// [from][event]; when several share a key, the first whose guards pass wins.
type Machine struct {
	initial     State
	current     State
	transitions map[string]map[string][]Transition
	hooks       []Hook
	mu          sync.RWMutex
}

func newMachine(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
}

func (m *Machine) addTransition(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}

	byEvent, ok := m.transitions[t.From.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.transitions[t.From.Name()] = byEvent
	}
	byEvent[t.Event.Name()] = append(byEvent[t.Event.Name()], t)
	return nil
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in state.
func (m *Machine) Is(state State) bool {
	if state == nil {
		return false
	}
	return m.Current().Name() == state.Name()
}

// Fire applies the first eligible transition for event.
func (m *Machine) Fire(ctx context.Context, event Event) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	from := m.current
	t, err := m.match(ctx, event)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.To
	hooks := m.hooks
	m.mu.Unlock()

	for _, h := range hooks {
		h(from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire(event) would find an eligible transition.
// Actions are not evaluated.
func (m *Machine) CanFire(ctx context.Context, event Event) bool {
	if event == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := m.match(ctx, event)
	return err == nil
}

// Reset returns the machine to its initial state without running hooks.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// match must be called with m.mu held.
func (m *Machine) match(ctx context.Context, event Event) (*Transition, error) {
	state, name := m.current.Name(), event.Name()

	candidates := m.transitions[state][name]
	if len(candidates) == 0 {
		return nil, &ErrNoTransitionAvailable{StateName: state, EventName: name}
	}

	for i := range candidates {
		if guardsPass(ctx, candidates[i].Guards, m.current, event) {
			return &candidates[i], nil
		}
	}
	return nil, &ErrTransitionRejected{StateName: state, EventName: name}
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event) bool {
	for _, g := range guards {
		if !g(ctx, from, event) {
			return false
		}
	}
	return true
}
