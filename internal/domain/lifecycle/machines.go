package lifecycle

import (
	"context"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// NewReportMachine builds the document-level machine positioned at the
// report's current status. Guards close over the report, so callers must keep
// the report's lines up to date before firing.
func NewReportMachine(r *report.ExpenseReport) Machine {
	b := NewBuilder()

	b.Configure(StateDraft).
		PermitIf(TriggerSubmit, StateWait, func(ctx context.Context) bool {
			return len(r.ApprovalLines) > 0
		}).
		Permit(TriggerSubmitDirect, StateApproved)

	b.Configure(StateWait).
		PermitIf(TriggerComplete, StateApproved, func(ctx context.Context) bool {
			return r.AllLinesApproved()
		}).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateRejected).
		Permit(TriggerCancelRejection, StateWait).
		Permit(TriggerResubmit, StateWait)

	return b.Build(State(r.Status))
}

// NewLineMachine builds the per-approver machine positioned at the line's
// current status. Cancelling an approval is only legal while the document as
// a whole is still WAIT; once the full report is APPROVED the action that the
// signature gated has happened and cannot be undone.
func NewLineMachine(r *report.ExpenseReport, l *report.ApprovalLine) Machine {
	b := NewBuilder()

	b.Configure(StateWait).
		PermitIf(TriggerSign, StateApproved, func(ctx context.Context) bool {
			return r.RejectedLine() == nil
		}).
		PermitIf(TriggerReject, StateRejected, func(ctx context.Context) bool {
			return r.RejectedLine() == nil
		})

	b.Configure(StateApproved).
		PermitIf(TriggerCancelApproval, StateWait, func(ctx context.Context) bool {
			return r.Status == report.StatusWait
		}).
		PermitIf(TriggerReject, StateRejected, func(ctx context.Context) bool {
			return r.Status == report.StatusWait && r.RejectedLine() == nil
		})

	b.Configure(StateRejected).
		PermitIf(TriggerCancelRejection, StateWait, func(ctx context.Context) bool {
			return r.Status == report.StatusRejected
		})

	return b.Build(State(l.Status))
}
