package repository

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// DetailRepository handles expense_details database operations
type DetailRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDetailRepository creates a new detail repository
func NewDetailRepository(db *sql.DB, logger *zap.Logger) *DetailRepository {
	return &DetailRepository{db: db, logger: logger}
}

// Create inserts a line item and sets its ID
func (r *DetailRepository) Create(tx *sql.Tx, d *report.ExpenseDetail) error {
	query := `
		INSERT INTO expense_details (
			report_id, correlation_key, position, category, merchant,
			description, amount, payment_method, card_id, card_number,
			usage_date, note, tax_deductible, tax_deduct_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := on(r.db, tx).Exec(query,
		d.ReportID,
		d.CorrelationKey,
		d.Position,
		d.Category,
		d.Merchant,
		d.Description,
		d.Amount.String(),
		d.PaymentMethod,
		d.CardID,
		d.CardNumber,
		d.UsageDate,
		d.Note,
		d.TaxDeductible,
		d.TaxDeductReason,
	)
	if err != nil {
		r.logger.Error("Failed to create detail", zap.Int64("report_id", d.ReportID), zap.Error(err))
		return fmt.Errorf("failed to create detail: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	d.ID = id
	return nil
}

// ListByReport retrieves a report's line items in submission order
func (r *DetailRepository) ListByReport(tx *sql.Tx, reportID int64) ([]*report.ExpenseDetail, error) {
	query := `
		SELECT id, report_id, correlation_key, position, category, merchant,
			description, amount, payment_method, card_id, card_number,
			usage_date, note, actual_paid_amount, tax_deductible,
			tax_deduct_reason, created_at
		FROM expense_details
		WHERE report_id = ?
		ORDER BY position, id
	`

	rows, err := on(r.db, tx).Query(query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list details: %w", err)
	}
	defer rows.Close()

	var details []*report.ExpenseDetail
	for rows.Next() {
		var d report.ExpenseDetail
		var amount string
		var actual sql.NullString
		var usage sql.NullTime

		err := rows.Scan(
			&d.ID,
			&d.ReportID,
			&d.CorrelationKey,
			&d.Position,
			&d.Category,
			&d.Merchant,
			&d.Description,
			&amount,
			&d.PaymentMethod,
			&d.CardID,
			&d.CardNumber,
			&usage,
			&d.Note,
			&actual,
			&d.TaxDeductible,
			&d.TaxDeductReason,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detail: %w", err)
		}

		d.Amount = scanDecimal(amount)
		d.ActualPaidAmount = nullDecimal(actual)
		if usage.Valid {
			d.UsageDate = &usage.Time
		}
		details = append(details, &d)
	}
	return details, rows.Err()
}

// DeleteByReport removes all line items of a report (used on edit rewrite)
func (r *DetailRepository) DeleteByReport(tx *sql.Tx, reportID int64) error {
	if _, err := on(r.db, tx).Exec("DELETE FROM expense_details WHERE report_id = ?", reportID); err != nil {
		return fmt.Errorf("failed to delete details: %w", err)
	}
	return nil
}

// SetActualPayment records the reconciled amount and payment method on a line
func (r *DetailRepository) SetActualPayment(tx *sql.Tx, detailID int64, actual decimal.Decimal, paymentMethod string) error {
	query := `UPDATE expense_details SET actual_paid_amount = ?, payment_method = ? WHERE id = ?`

	if _, err := on(r.db, tx).Exec(query, actual.String(), paymentMethod, detailID); err != nil {
		r.logger.Error("Failed to set actual payment", zap.Int64("detail_id", detailID), zap.Error(err))
		return fmt.Errorf("failed to set actual payment: %w", err)
	}
	return nil
}

// SetTaxDeductible updates the tax-deductibility flag and reason on a line
func (r *DetailRepository) SetTaxDeductible(tx *sql.Tx, detailID int64, deductible bool, reason string) error {
	query := `UPDATE expense_details SET tax_deductible = ?, tax_deduct_reason = ? WHERE id = ?`

	if _, err := on(r.db, tx).Exec(query, deductible, reason, detailID); err != nil {
		return fmt.Errorf("failed to set tax deductibility: %w", err)
	}
	return nil
}
