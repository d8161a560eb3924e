package lifecycle

import "errors"

var (
	// ErrInvalidTransition is returned when a transition is not allowed
	// from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guard for a permitted
	// transition evaluates false
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrNotAuthorized is returned when the acting user may not perform
	// the requested transition on the given report
	ErrNotAuthorized = errors.New("actor not authorized for this action")

	// ErrRejectionPending is returned when a standing rejection blocks
	// other approvers from acting until it is cancelled
	ErrRejectionPending = errors.New("a rejection is pending on this report")
)
