package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// ReceiptRepository handles receipts database operations
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{db: db, logger: logger}
}

// Create inserts a receipt row and sets its ID
func (r *ReceiptRepository) Create(tx *sql.Tx, rc *report.Receipt) error {
	query := `
		INSERT INTO receipts (
			report_id, detail_id, uploader_id, file_name, file_size,
			mime_type, storage_key
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := on(r.db, tx).Exec(query,
		rc.ReportID,
		rc.DetailID,
		rc.UploaderID,
		rc.FileName,
		rc.FileSize,
		rc.MimeType,
		rc.StorageKey,
	)
	if err != nil {
		r.logger.Error("Failed to create receipt", zap.Int64("report_id", rc.ReportID), zap.Error(err))
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rc.ID = id
	return nil
}

// GetByID retrieves a receipt by ID
func (r *ReceiptRepository) GetByID(id int64) (*report.Receipt, error) {
	query := `
		SELECT id, report_id, detail_id, uploader_id, file_name, file_size,
			mime_type, storage_key, uploaded_at
		FROM receipts
		WHERE id = ?
	`

	var rc report.Receipt
	var detailID sql.NullInt64

	err := r.db.QueryRow(query, id).Scan(
		&rc.ID,
		&rc.ReportID,
		&detailID,
		&rc.UploaderID,
		&rc.FileName,
		&rc.FileSize,
		&rc.MimeType,
		&rc.StorageKey,
		&rc.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("receipt %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	if detailID.Valid {
		rc.DetailID = &detailID.Int64
	}
	return &rc, nil
}

// ListByReport retrieves all receipts attached to a report
func (r *ReceiptRepository) ListByReport(tx *sql.Tx, reportID int64) ([]*report.Receipt, error) {
	query := `
		SELECT id, report_id, detail_id, uploader_id, file_name, file_size,
			mime_type, storage_key, uploaded_at
		FROM receipts
		WHERE report_id = ?
		ORDER BY id
	`

	rows, err := on(r.db, tx).Query(query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*report.Receipt
	for rows.Next() {
		var rc report.Receipt
		var detailID sql.NullInt64

		err := rows.Scan(
			&rc.ID,
			&rc.ReportID,
			&detailID,
			&rc.UploaderID,
			&rc.FileName,
			&rc.FileSize,
			&rc.MimeType,
			&rc.StorageKey,
			&rc.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}

		if detailID.Valid {
			rc.DetailID = &detailID.Int64
		}
		receipts = append(receipts, &rc)
	}
	return receipts, rows.Err()
}

// Delete removes a receipt row
func (r *ReceiptRepository) Delete(tx *sql.Tx, id int64) error {
	if _, err := on(r.db, tx).Exec("DELETE FROM receipts WHERE id = ?", id); err != nil {
		r.logger.Error("Failed to delete receipt", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}
