package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// ApprovalRepository handles approval_lines database operations
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval-line repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

// Create inserts an approval line and sets its ID
func (r *ApprovalRepository) Create(tx *sql.Tx, l *report.ApprovalLine) error {
	query := `
		INSERT INTO approval_lines (
			report_id, position, approver_id, approver_name,
			approver_position, status
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := on(r.db, tx).Exec(query,
		l.ReportID,
		l.Position,
		l.ApproverID,
		l.ApproverName,
		l.ApproverPosition,
		l.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create approval line",
			zap.Int64("report_id", l.ReportID),
			zap.String("approver_id", l.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	l.ID = id
	return nil
}

// ListByReport retrieves a report's approval lines in chain order
func (r *ApprovalRepository) ListByReport(tx *sql.Tx, reportID int64) ([]*report.ApprovalLine, error) {
	query := `
		SELECT id, report_id, position, approver_id, approver_name,
			approver_position, status, signature_data, rejection_reason,
			approved_at, created_at
		FROM approval_lines
		WHERE report_id = ?
		ORDER BY position, id
	`

	rows, err := on(r.db, tx).Query(query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval lines: %w", err)
	}
	defer rows.Close()

	var lines []*report.ApprovalLine
	for rows.Next() {
		var l report.ApprovalLine
		var approvedAt sql.NullTime

		err := rows.Scan(
			&l.ID,
			&l.ReportID,
			&l.Position,
			&l.ApproverID,
			&l.ApproverName,
			&l.ApproverPosition,
			&l.Status,
			&l.SignatureData,
			&l.RejectionReason,
			&approvedAt,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval line: %w", err)
		}

		if approvedAt.Valid {
			l.ApprovedAt = &approvedAt.Time
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// Sign marks a line approved with its signature image and timestamp
func (r *ApprovalRepository) Sign(tx *sql.Tx, lineID int64, signature string, at time.Time) error {
	query := `
		UPDATE approval_lines
		SET status = ?, signature_data = ?, rejection_reason = '', approved_at = ?
		WHERE id = ?
	`

	if _, err := on(r.db, tx).Exec(query, report.StatusApproved, signature, at, lineID); err != nil {
		r.logger.Error("Failed to sign approval line", zap.Int64("line_id", lineID), zap.Error(err))
		return fmt.Errorf("failed to sign approval line: %w", err)
	}
	return nil
}

// Reject marks a line rejected with the mandatory reason
func (r *ApprovalRepository) Reject(tx *sql.Tx, lineID int64, reason string) error {
	query := `
		UPDATE approval_lines
		SET status = ?, rejection_reason = ?, signature_data = '', approved_at = NULL
		WHERE id = ?
	`

	if _, err := on(r.db, tx).Exec(query, report.StatusRejected, reason, lineID); err != nil {
		r.logger.Error("Failed to reject approval line", zap.Int64("line_id", lineID), zap.Error(err))
		return fmt.Errorf("failed to reject approval line: %w", err)
	}
	return nil
}

// ResetToWait returns a line to the pending state, clearing any signature or
// rejection it carried (cancel-approval, cancel-rejection, resubmission).
func (r *ApprovalRepository) ResetToWait(tx *sql.Tx, lineID int64) error {
	query := `
		UPDATE approval_lines
		SET status = ?, signature_data = '', rejection_reason = '', approved_at = NULL
		WHERE id = ?
	`

	if _, err := on(r.db, tx).Exec(query, report.StatusWait, lineID); err != nil {
		return fmt.Errorf("failed to reset approval line: %w", err)
	}
	return nil
}

// ResetAllToWait returns every line of a report to the pending state
func (r *ApprovalRepository) ResetAllToWait(tx *sql.Tx, reportID int64) error {
	query := `
		UPDATE approval_lines
		SET status = ?, signature_data = '', rejection_reason = '', approved_at = NULL
		WHERE report_id = ?
	`

	if _, err := on(r.db, tx).Exec(query, report.StatusWait, reportID); err != nil {
		return fmt.Errorf("failed to reset approval lines: %w", err)
	}
	return nil
}

// DeleteByReport removes all approval lines of a report
func (r *ApprovalRepository) DeleteByReport(tx *sql.Tx, reportID int64) error {
	if _, err := on(r.db, tx).Exec("DELETE FROM approval_lines WHERE report_id = ?", reportID); err != nil {
		return fmt.Errorf("failed to delete approval lines: %w", err)
	}
	return nil
}
