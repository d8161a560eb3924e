package lifecycle

import "context"

// Machine tracks a current state and validates transitions against a
// configured transition table.
type Machine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts the trigger, moving to the target state if a permitted
	// transition exists and its guard (if any) passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}

type machine struct {
	current        State
	configurations map[State]*stateConfig
}

// State returns the current state
func (m *machine) State() State {
	return m.current
}

// CanFire returns true if the trigger has at least one configured transition
// from the current state. Guards are not evaluated here.
func (m *machine) CanFire(trigger Trigger) bool {
	config, ok := m.configurations[m.current]
	if !ok {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire attempts the trigger, trying each configured transition in order
func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	config, ok := m.configurations[m.current]
	if !ok {
		return invalidTransition(trigger, m.current)
	}

	transitions, ok := config.transitions[trigger]
	if !ok || len(transitions) == 0 {
		return invalidTransition(trigger, m.current)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.toState
			return nil
		}
	}

	return guardFailed(trigger, m.current)
}

// PermittedTriggers returns all triggers configured for the current state
func (m *machine) PermittedTriggers() []Trigger {
	config, ok := m.configurations[m.current]
	if !ok {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
