// Package validate holds the pure completeness rules for expense line items.
// Incomplete items stay in the working list but are excluded from submission
// payloads and total calculations.
package validate

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// Detail returns true iff the line item is complete: usage date, category,
// non-blank merchant and description, amount > 0 and payment method present,
// plus card proof when the payment method is a card variant.
func Detail(d *report.ExpenseDetail) bool {
	if d == nil {
		return false
	}
	if d.UsageDate == nil || d.UsageDate.IsZero() {
		return false
	}
	if blank(d.Category) || blank(d.Merchant) || blank(d.Description) {
		return false
	}
	if !d.Amount.IsPositive() {
		return false
	}
	if blank(d.PaymentMethod) {
		return false
	}
	if report.IsCardMethod(d.PaymentMethod) && !d.HasCardProof() {
		return false
	}
	return true
}

// Submittable filters the working list down to the complete items, in order
func Submittable(details []*report.ExpenseDetail) []*report.ExpenseDetail {
	out := make([]*report.ExpenseDetail, 0, len(details))
	for _, d := range details {
		if Detail(d) {
			out = append(out, d)
		}
	}
	return out
}

// Total sums the amounts of the complete items only
func Total(details []*report.ExpenseDetail) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		if Detail(d) {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// HasNoApprovalCategory returns true if any complete item carries the
// restricted payroll category, which suppresses the approval requirement for
// the whole report.
func HasNoApprovalCategory(details []*report.ExpenseDetail) bool {
	for _, d := range details {
		if Detail(d) && d.Category == report.CategoryPayroll {
			return true
		}
	}
	return false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
