package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// ReportRepository handles expense_reports database operations
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger}
}

const reportColumns = `id, drafter_id, drafter_name, report_date, status,
	total_amount, actual_paid_amount, amount_difference_reason, paid_at,
	tax_collected, created_at, updated_at`

// Create inserts a new expense report and sets its ID
func (r *ReportRepository) Create(tx *sql.Tx, rep *report.ExpenseReport) error {
	query := `
		INSERT INTO expense_reports (
			drafter_id, drafter_name, report_date, status, total_amount
		) VALUES (?, ?, ?, ?, ?)
	`

	result, err := on(r.db, tx).Exec(query,
		rep.DrafterID,
		rep.DrafterName,
		rep.ReportDate,
		rep.Status,
		rep.TotalAmount.String(),
	)
	if err != nil {
		r.logger.Error("Failed to create report", zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rep.ID = id
	return nil
}

// GetByID retrieves an expense report header by ID
func (r *ReportRepository) GetByID(tx *sql.Tx, id int64) (*report.ExpenseReport, error) {
	query := fmt.Sprintf("SELECT %s FROM expense_reports WHERE id = ?", reportColumns)

	row := on(r.db, tx).QueryRow(query, id)
	rep, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

// UpdateStatus updates the report status
func (r *ReportRepository) UpdateStatus(tx *sql.Tx, id int64, status string) error {
	query := `UPDATE expense_reports SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := on(r.db, tx).Exec(query, status, id); err != nil {
		r.logger.Error("Failed to update report status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update report status: %w", err)
	}
	return nil
}

// UpdateHeader rewrites the mutable header fields after an edit
func (r *ReportRepository) UpdateHeader(tx *sql.Tx, rep *report.ExpenseReport) error {
	query := `
		UPDATE expense_reports
		SET report_date = ?, status = ?, total_amount = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := on(r.db, tx).Exec(query, rep.ReportDate, rep.Status, rep.TotalAmount.String(), rep.ID); err != nil {
		r.logger.Error("Failed to update report header", zap.Int64("id", rep.ID), zap.Error(err))
		return fmt.Errorf("failed to update report header: %w", err)
	}
	return nil
}

// SetPayment records the reconciled payment on the report
func (r *ReportRepository) SetPayment(tx *sql.Tx, id int64, actual decimal.Decimal, reason string, paidAt time.Time) error {
	query := `
		UPDATE expense_reports
		SET actual_paid_amount = ?, amount_difference_reason = ?, paid_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := on(r.db, tx).Exec(query, actual.String(), reason, paidAt, id); err != nil {
		r.logger.Error("Failed to set payment", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set payment: %w", err)
	}
	return nil
}

// SetTaxCollected marks the report as collected by downstream tax processing
func (r *ReportRepository) SetTaxCollected(tx *sql.Tx, id int64, collected bool) error {
	query := `UPDATE expense_reports SET tax_collected = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := on(r.db, tx).Exec(query, collected, id); err != nil {
		return fmt.Errorf("failed to set tax collected: %w", err)
	}
	return nil
}

// Delete removes a report; details, lines and receipt rows cascade
func (r *ReportRepository) Delete(tx *sql.Tx, id int64) error {
	if _, err := on(r.db, tx).Exec("DELETE FROM expense_reports WHERE id = ?", id); err != nil {
		r.logger.Error("Failed to delete report", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// ListByDrafter retrieves a drafter's reports, newest first
func (r *ReportRepository) ListByDrafter(drafterID string, limit, offset int) ([]*report.ExpenseReport, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM expense_reports
		WHERE drafter_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, reportColumns)

	rows, err := r.db.Query(query, drafterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.ExpenseReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*report.ExpenseReport, error) {
	var rep report.ExpenseReport
	var total string
	var actual sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&rep.ID,
		&rep.DrafterID,
		&rep.DrafterName,
		&rep.ReportDate,
		&rep.Status,
		&total,
		&actual,
		&rep.AmountDifferenceNote,
		&paidAt,
		&rep.TaxCollected,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rep.TotalAmount = scanDecimal(total)
	rep.ActualPaidAmount = nullDecimal(actual)
	if paidAt.Valid {
		rep.PaidAt = &paidAt.Time
	}
	return &rep, nil
}
