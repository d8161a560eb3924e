package lifecycle

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a configured transition may be taken
type GuardFunc func(ctx context.Context) bool

// Builder assembles a transition table and stamps out machine instances
type Builder interface {
	// Configure returns the configuration for transitions out of state
	Configure(state State) StateConfiguration

	// Build creates a machine instance positioned at initialState
	Build(initialState State) Machine
}

// StateConfiguration configures the transitions out of one state
type StateConfiguration interface {
	// Permit allows trigger to move to toState unconditionally
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows trigger to move to toState when guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
}

type builder struct {
	configurations map[State]*stateConfig
}

// NewBuilder creates an empty machine builder
func NewBuilder() Builder {
	return &builder{configurations: make(map[State]*stateConfig)}
}

// Configure returns the configuration for transitions out of state
func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, ok := b.configurations[state]
	if !ok {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}
	return config
}

// Build creates a machine instance positioned at initialState. The transition
// table is copied so later builder mutations cannot affect built machines.
func (b *builder) Build(initialState State) Machine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	configs := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitions := make(map[Trigger][]transition, len(config.transitions))
		for trigger, ts := range config.transitions {
			transitions[trigger] = append([]transition{}, ts...)
		}
		configs[state] = &stateConfig{fromState: state, transitions: transitions}
	}

	return &machine{current: initialState, configurations: configs}
}

// Permit allows trigger to move to toState unconditionally
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows trigger to move to toState when guard passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{toState: toState, guard: guard})
	return c
}

func invalidTransition(trigger Trigger, from State) error {
	return fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, from)
}

func guardFailed(trigger Trigger, from State) error {
	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, from)
}
