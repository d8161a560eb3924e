package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/validate"
)

// DetailInput is one line item as submitted by the client. CorrelationKey is
// a client-generated identifier echoed back on the persisted detail so the
// client can join its local receipt files to server-assigned detail IDs.
type DetailInput struct {
	CorrelationKey string          `json:"correlation_key"`
	Category       string          `json:"category"`
	Merchant       string          `json:"merchant"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	CardID         int64           `json:"card_id,omitempty"`
	CardNumber     string          `json:"card_number,omitempty"`
	UsageDate      *time.Time      `json:"usage_date,omitempty"`
	Note           string          `json:"note,omitempty"`
}

// SubmitRequest is the report creation payload
type SubmitRequest struct {
	DrafterID   string        `json:"drafter_id"`
	DrafterName string        `json:"drafter_name"`
	ReportDate  time.Time     `json:"report_date"`
	Details     []DetailInput `json:"details"`
}

// NoApprovalNeeded reports whether the submission carries a complete item in
// the restricted payroll category, which suppresses the approval chain for
// the whole report.
func (req SubmitRequest) NoApprovalNeeded() bool {
	details := make([]*report.ExpenseDetail, 0, len(req.Details))
	for i, in := range req.Details {
		details = append(details, in.toDetail(i))
	}
	return validate.HasNoApprovalCategory(details)
}

// LineInput is one approver slot as submitted at approval-chain setup
type LineInput struct {
	ApproverID       string `json:"approver_id"`
	ApproverName     string `json:"approver_name"`
	ApproverPosition string `json:"approver_position"`
}

// PaymentLine carries one line's reconciliation values
type PaymentLine struct {
	DetailID      int64           `json:"detail_id"`
	ActualAmount  decimal.Decimal `json:"actual_amount"`
	PaymentMethod string          `json:"payment_method"`
}

// toDetail converts an input to a domain detail at the given position
func (in DetailInput) toDetail(position int) *report.ExpenseDetail {
	return &report.ExpenseDetail{
		CorrelationKey: in.CorrelationKey,
		Position:       position,
		Category:       in.Category,
		Merchant:       in.Merchant,
		Description:    in.Description,
		Amount:         in.Amount,
		PaymentMethod:  in.PaymentMethod,
		CardID:         in.CardID,
		CardNumber:     in.CardNumber,
		UsageDate:      in.UsageDate,
		Note:           in.Note,
	}
}
