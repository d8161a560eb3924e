package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseReport represents a single expense claim document containing one or
// more line items, a sequential approval chain, and attached receipts.
type ExpenseReport struct {
	ID          int64     `json:"id"`
	DrafterID   string    `json:"drafter_id"`
	DrafterName string    `json:"drafter_name"`
	ReportDate  time.Time `json:"report_date"`
	Status      string    `json:"status"`

	TotalAmount decimal.Decimal `json:"total_amount"`

	// Set by payment reconciliation only
	ActualPaidAmount     *decimal.Decimal `json:"actual_paid_amount,omitempty"`
	AmountDifferenceNote string           `json:"amount_difference_reason,omitempty"`
	PaidAt               *time.Time       `json:"paid_at,omitempty"`

	// Set once downstream tax processing has collected the report; blocks
	// all further edits and deletion by the drafter.
	TaxCollected bool `json:"tax_collected"`

	Details       []*ExpenseDetail `json:"details,omitempty"`
	ApprovalLines []*ApprovalLine  `json:"approval_lines,omitempty"`
	Receipts      []*Receipt       `json:"receipts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineFor returns the approval line addressed to the given approver, or nil
// if the approver is not part of this report's chain.
func (r *ExpenseReport) LineFor(approverID string) *ApprovalLine {
	for _, l := range r.ApprovalLines {
		if l.ApproverID == approverID {
			return l
		}
	}
	return nil
}

// HasApprover returns true if the approver already holds a line on this report
func (r *ExpenseReport) HasApprover(approverID string) bool {
	return r.LineFor(approverID) != nil
}

// AllLinesApproved returns true if every approval line has been approved.
// A report with no lines is not considered fully approved by this check.
func (r *ExpenseReport) AllLinesApproved() bool {
	if len(r.ApprovalLines) == 0 {
		return false
	}
	for _, l := range r.ApprovalLines {
		if l.Status != StatusApproved {
			return false
		}
	}
	return true
}

// RejectedLine returns the line currently holding a rejection, or nil.
// A standing rejection blocks all other approvers from acting.
func (r *ExpenseReport) RejectedLine() *ApprovalLine {
	for _, l := range r.ApprovalLines {
		if l.Status == StatusRejected {
			return l
		}
	}
	return nil
}

// FirstLineSigned returns true if the first approval line carries a
// signature. "Add another approver" unlocks only after this point.
func (r *ExpenseReport) FirstLineSigned() bool {
	if len(r.ApprovalLines) == 0 {
		return false
	}
	return r.ApprovalLines[0].Signed()
}

// AnySignature returns true if any approver has produced a signature image
func (r *ExpenseReport) AnySignature() bool {
	for _, l := range r.ApprovalLines {
		if l.Signed() {
			return true
		}
	}
	return false
}

// Editable reports whether the drafter may still edit or delete this report:
// status WAIT or REJECTED, no signature present on any line unless the report
// as a whole is REJECTED, and never once tax processing collected it.
func (r *ExpenseReport) Editable(userID string) bool {
	if r.DrafterID != userID || r.TaxCollected {
		return false
	}
	switch r.Status {
	case StatusRejected:
		return true
	case StatusWait, StatusDraft:
		return !r.AnySignature()
	default:
		return false
	}
}

// ActualTotal sums the reconciled per-line amounts, falling back to approved
// amounts for lines not yet reconciled.
func (r *ExpenseReport) ActualTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range r.Details {
		total = total.Add(d.PaidAmount())
	}
	return total
}

// trimmed is the blank-string rule shared by the domain: whitespace-only
// strings count as blank.
func trimmed(s string) string {
	return strings.TrimSpace(s)
}
