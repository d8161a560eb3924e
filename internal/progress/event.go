// Package progress carries typed progress events from long-running workflows
// to whatever presentation layer subscribes, so progress synthesis stays
// decoupled from its rendering.
package progress

import "time"

// Stage identifies which phase of a workflow an event belongs to
type Stage string

const (
	StageSubmitting    Stage = "submitting"     // report payload upload
	StageProcessing    Stage = "processing"     // server-side job materialization
	StageApprovalLines Stage = "approval_lines" // persisting the approval chain
	StageReceipts      Stage = "receipts"       // sequential receipt uploads
	StageDone          Stage = "done"
	StageFailed        Stage = "failed"
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Event is one progress snapshot. Percent is the unified 0-100 value across
// all phases; Message is human-readable and may come verbatim from the server.
type Event struct {
	Stage     Stage     `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a progress event stamped with the current time
func NewEvent(stage Stage, percent int, message string) Event {
	return Event{
		Stage:     stage,
		Percent:   percent,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewFailure creates a terminal failure event
func NewFailure(percent int, message, errMsg string) Event {
	e := NewEvent(StageFailed, percent, message)
	e.Err = errMsg
	return e
}
