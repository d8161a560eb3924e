package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseDetail represents a single expense line item within a report
type ExpenseDetail struct {
	ID             int64           `json:"id"`
	ReportID       int64           `json:"report_id"`
	CorrelationKey string          `json:"correlation_key"`
	Position       int             `json:"position"`
	Category       string          `json:"category"`
	Merchant       string          `json:"merchant"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	CardID         int64           `json:"card_id,omitempty"`
	CardNumber     string          `json:"card_number,omitempty"`
	UsageDate      *time.Time      `json:"usage_date,omitempty"`
	Note           string          `json:"note,omitempty"`

	// Set by payment reconciliation only
	ActualPaidAmount *decimal.Decimal `json:"actual_paid_amount,omitempty"`

	// Tax-accountant-editable only
	TaxDeductible   bool   `json:"tax_deductible"`
	TaxDeductReason string `json:"tax_deduct_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasCardProof returns true if either a card identifier or a card number is
// present. Card payment methods require this to be complete.
func (d *ExpenseDetail) HasCardProof() bool {
	return d.CardID > 0 || trimmed(d.CardNumber) != ""
}

// PaidAmount returns the reconciled amount, falling back to the approved
// amount when reconciliation has not happened yet.
func (d *ExpenseDetail) PaidAmount() decimal.Decimal {
	if d.ActualPaidAmount != nil {
		return *d.ActualPaidAmount
	}
	return d.Amount
}
