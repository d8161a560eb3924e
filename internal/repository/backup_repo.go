package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// BackupApproverRepository handles backup_approvers database operations.
// Each user configures a pool of candidates the "add another approver"
// action may draw from.
type BackupApproverRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBackupApproverRepository creates a new backup-approver repository
func NewBackupApproverRepository(db *sql.DB, logger *zap.Logger) *BackupApproverRepository {
	return &BackupApproverRepository{db: db, logger: logger}
}

// ListByOwner retrieves the configured backup pool for a user
func (r *BackupApproverRepository) ListByOwner(ownerID string) ([]*report.BackupApprover, error) {
	query := `
		SELECT id, owner_id, approver_id, approver_name, approver_position
		FROM backup_approvers
		WHERE owner_id = ?
		ORDER BY id
	`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup approvers: %w", err)
	}
	defer rows.Close()

	var pool []*report.BackupApprover
	for rows.Next() {
		var b report.BackupApprover
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.ApproverID, &b.ApproverName, &b.ApproverPosition); err != nil {
			return nil, fmt.Errorf("failed to scan backup approver: %w", err)
		}
		pool = append(pool, &b)
	}
	return pool, rows.Err()
}

// Create adds a candidate to a user's backup pool
func (r *BackupApproverRepository) Create(b *report.BackupApprover) error {
	query := `
		INSERT INTO backup_approvers (owner_id, approver_id, approver_name, approver_position)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Exec(query, b.OwnerID, b.ApproverID, b.ApproverName, b.ApproverPosition)
	if err != nil {
		r.logger.Error("Failed to create backup approver", zap.String("owner_id", b.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to create backup approver: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	b.ID = id
	return nil
}
