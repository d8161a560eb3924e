package lifecycle

import (
	"fmt"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// Authorize is the single authorization predicate for every lifecycle
// transition. It decides whether the acting user may fire the trigger on the
// given report; state legality is the machines' concern, identity and role
// legality is decided here.
func Authorize(trigger Trigger, actor report.Actor, r *report.ExpenseReport) error {
	switch trigger {
	case TriggerSign, TriggerReject:
		line := r.LineFor(actor.UserID)
		if line == nil {
			return fmt.Errorf("%w: %s is not an approver on report %d", ErrNotAuthorized, actor.UserID, r.ID)
		}
		if rejected := r.RejectedLine(); rejected != nil && rejected.ApproverID != actor.UserID {
			return fmt.Errorf("%w: rejected by %s", ErrRejectionPending, rejected.ApproverID)
		}
		return nil

	case TriggerCancelApproval:
		line := r.LineFor(actor.UserID)
		if line == nil || line.Status != report.StatusApproved {
			return fmt.Errorf("%w: %s holds no approval to cancel on report %d", ErrNotAuthorized, actor.UserID, r.ID)
		}
		return nil

	case TriggerCancelRejection:
		line := r.LineFor(actor.UserID)
		if line == nil || line.Status != report.StatusRejected {
			return fmt.Errorf("%w: %s holds no rejection to cancel on report %d", ErrNotAuthorized, actor.UserID, r.ID)
		}
		return nil

	case TriggerSubmit, TriggerSubmitDirect, TriggerResubmit:
		if r.DrafterID != actor.UserID {
			return fmt.Errorf("%w: only the drafter may submit report %d", ErrNotAuthorized, r.ID)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown trigger %s", ErrNotAuthorized, trigger)
	}
}

// AuthorizeAddApprover guards the "add another approver" action: available
// only once the first approval line has been signed, only to a user already
// present in the chain, and never on a rejected report.
func AuthorizeAddApprover(actor report.Actor, r *report.ExpenseReport) error {
	if r.Status == report.StatusRejected {
		return fmt.Errorf("%w: cannot add an approver to a rejected report", ErrNotAuthorized)
	}
	if !r.HasApprover(actor.UserID) {
		return fmt.Errorf("%w: %s is not an approver on report %d", ErrNotAuthorized, actor.UserID, r.ID)
	}
	if !r.FirstLineSigned() {
		return fmt.Errorf("%w: first approval line has not been signed yet", ErrNotAuthorized)
	}
	return nil
}

// AuthorizeEdit guards drafter-initiated edits and deletion
func AuthorizeEdit(actor report.Actor, r *report.ExpenseReport) error {
	if !r.Editable(actor.UserID) {
		return fmt.Errorf("%w: report %d is not editable by %s", ErrNotAuthorized, r.ID, actor.UserID)
	}
	return nil
}

// AuthorizePayment guards payment reconciliation: payment-role users only,
// and only on a fully approved report.
func AuthorizePayment(actor report.Actor, r *report.ExpenseReport) error {
	if actor.Role != report.RolePayment && actor.Role != report.RoleAdmin {
		return fmt.Errorf("%w: role %s may not record payments", ErrNotAuthorized, actor.Role)
	}
	if r.Status != report.StatusApproved {
		return fmt.Errorf("%w: report %d is not approved", ErrNotAuthorized, r.ID)
	}
	return nil
}

// AuthorizeTaxEdit guards the tax-deductibility flag and reason, which only
// tax accountants may change.
func AuthorizeTaxEdit(actor report.Actor) error {
	if actor.Role != report.RoleTaxAccountant {
		return fmt.Errorf("%w: role %s may not edit tax deductibility", ErrNotAuthorized, actor.Role)
	}
	return nil
}
