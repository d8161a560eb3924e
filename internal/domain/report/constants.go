package report

// Report and approval-line status constants
const (
	StatusDraft    = "DRAFT"
	StatusWait     = "WAIT"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Payment method constants
const (
	PaymentCash         = "CASH"
	PaymentBankTransfer = "BANK_TRANSFER"
	PaymentCard         = "CARD"
	PaymentCompanyCard  = "COMPANY_CARD"
	PaymentCreditCard   = "CREDIT_CARD"
	PaymentDebitCard    = "DEBIT_CARD"
)

// cardMethods enumerates the payment methods that require card proof
var cardMethods = map[string]bool{
	PaymentCard:        true,
	PaymentCompanyCard: true,
	PaymentCreditCard:  true,
	PaymentDebitCard:   true,
}

// IsCardMethod returns true if the payment method is a card variant
func IsCardMethod(method string) bool {
	return cardMethods[method]
}

// CategoryPayroll is the restricted category that bypasses approval entirely.
// A report containing a payroll item is created directly as APPROVED with an
// empty approval-line list.
const CategoryPayroll = "PAYROLL"

// User role constants
const (
	RoleEmployee      = "EMPLOYEE"
	RolePayment       = "PAYMENT"
	RoleTaxAccountant = "TAX_ACCOUNTANT"
	RoleAdmin         = "ADMIN"
)

// elevatedRoles may delete receipts they did not upload
var elevatedRoles = map[string]bool{
	RolePayment:       true,
	RoleTaxAccountant: true,
	RoleAdmin:         true,
}

// IsElevatedRole returns true if the role may act on other users' receipts
func IsElevatedRole(role string) bool {
	return elevatedRoles[role]
}

// Actor identifies the user performing an operation
type Actor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
