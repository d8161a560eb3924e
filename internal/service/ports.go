package service

import (
	"database/sql"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// Repository ports. The sqlite implementations live in internal/repository;
// tests substitute hand-rolled fakes.

// ReportRepo is the expense_reports persistence port
type ReportRepo interface {
	Create(tx *sql.Tx, rep *report.ExpenseReport) error
	GetByID(tx *sql.Tx, id int64) (*report.ExpenseReport, error)
	UpdateStatus(tx *sql.Tx, id int64, status string) error
	UpdateHeader(tx *sql.Tx, rep *report.ExpenseReport) error
	SetPayment(tx *sql.Tx, id int64, actual decimal.Decimal, reason string, paidAt time.Time) error
	SetTaxCollected(tx *sql.Tx, id int64, collected bool) error
	Delete(tx *sql.Tx, id int64) error
	ListByDrafter(drafterID string, limit, offset int) ([]*report.ExpenseReport, error)
}

// DetailRepo is the expense_details persistence port
type DetailRepo interface {
	Create(tx *sql.Tx, d *report.ExpenseDetail) error
	ListByReport(tx *sql.Tx, reportID int64) ([]*report.ExpenseDetail, error)
	DeleteByReport(tx *sql.Tx, reportID int64) error
	SetActualPayment(tx *sql.Tx, detailID int64, actual decimal.Decimal, paymentMethod string) error
	SetTaxDeductible(tx *sql.Tx, detailID int64, deductible bool, reason string) error
}

// ApprovalRepo is the approval_lines persistence port
type ApprovalRepo interface {
	Create(tx *sql.Tx, l *report.ApprovalLine) error
	ListByReport(tx *sql.Tx, reportID int64) ([]*report.ApprovalLine, error)
	Sign(tx *sql.Tx, lineID int64, signature string, at time.Time) error
	Reject(tx *sql.Tx, lineID int64, reason string) error
	ResetToWait(tx *sql.Tx, lineID int64) error
	ResetAllToWait(tx *sql.Tx, reportID int64) error
	DeleteByReport(tx *sql.Tx, reportID int64) error
}

// ReceiptRepo is the receipts persistence port
type ReceiptRepo interface {
	Create(tx *sql.Tx, rc *report.Receipt) error
	GetByID(id int64) (*report.Receipt, error)
	ListByReport(tx *sql.Tx, reportID int64) ([]*report.Receipt, error)
	Delete(tx *sql.Tx, id int64) error
}

// BackupRepo is the backup-approver pool port
type BackupRepo interface {
	ListByOwner(ownerID string) ([]*report.BackupApprover, error)
	Create(b *report.BackupApprover) error
}

// TxManager runs a function inside a database transaction
type TxManager interface {
	WithTransaction(fn func(*sql.Tx) error) error
}

// FileStore is the receipt blob storage port
type FileStore interface {
	Save(r io.Reader, originalName string) (string, error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
}
