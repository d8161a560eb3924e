package lifecycle

// State represents a position in the expense-report approval lifecycle.
// Approval lines share the same state space minus DRAFT.
type State string

const (
	StateDraft    State = "DRAFT"
	StateWait     State = "WAIT"
	StateApproved State = "APPROVED"
	StateRejected State = "REJECTED"
)

var validStates = map[State]bool{
	StateDraft:    true,
	StateWait:     true,
	StateApproved: true,
	StateRejected: true,
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
