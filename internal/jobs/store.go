package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrJobNotFound is returned when a requested job row does not exist
var ErrJobNotFound = errors.New("job not found")

// SQLStore persists creation jobs in the creation_jobs table so progress
// survives restarts and any instance can answer a poll.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLStore creates a new job store
func NewSQLStore(db *sql.DB, logger *zap.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// Create inserts a queued job row
func (s *SQLStore) Create(j *Job) error {
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode job payload: %w", err)
	}

	query := `
		INSERT INTO creation_jobs (id, status, percentage, message, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, j.ID, j.Status, j.Percentage, j.Message, string(payload)); err != nil {
		s.logger.Error("Failed to create job", zap.String("job_id", j.ID), zap.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (s *SQLStore) Get(id string) (*Job, error) {
	query := `
		SELECT id, status, percentage, message, completed, failed,
			report_id, error_message, payload, created_at, updated_at
		FROM creation_jobs WHERE id = ?
	`

	var j Job
	var reportID sql.NullInt64
	var payload string
	err := s.db.QueryRow(query, id).Scan(
		&j.ID,
		&j.Status,
		&j.Percentage,
		&j.Message,
		&j.Completed,
		&j.Failed,
		&reportID,
		&j.ErrorMessage,
		&payload,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	if err != nil {
		s.logger.Error("Failed to get job", zap.String("job_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if reportID.Valid {
		j.ReportID = &reportID.Int64
	}
	if err := json.Unmarshal([]byte(payload), &j.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}
	return &j, nil
}

// MarkRunning flips a queued job to RUNNING
func (s *SQLStore) MarkRunning(id string) error {
	query := `
		UPDATE creation_jobs
		SET status = ?, message = 'processing', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := s.db.Exec(query, StatusRunning, id); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	return nil
}

// UpdateProgress records an intermediate percentage and message
func (s *SQLStore) UpdateProgress(id string, pct int, msg string) error {
	query := `
		UPDATE creation_jobs
		SET percentage = ?, message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := s.db.Exec(query, pct, msg, id); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// Complete marks the job done and records the created report
func (s *SQLStore) Complete(id string, reportID int64) error {
	query := `
		UPDATE creation_jobs
		SET status = ?, percentage = 100, message = 'completed', completed = 1,
			report_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := s.db.Exec(query, StatusCompleted, reportID, id); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// Fail marks the job failed with the given message
func (s *SQLStore) Fail(id string, errMsg string) error {
	query := `
		UPDATE creation_jobs
		SET status = ?, message = 'failed', failed = 1, error_message = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := s.db.Exec(query, StatusFailed, errMsg, id); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}
