// Package jobs runs expense-report creation asynchronously. Submissions are
// recorded as job rows, queued, and materialized by a background worker;
// clients poll the job row for progress until it completes or fails.
package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwkim/expenseflow/internal/service"
)

// Job statuses
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Job is one queued report creation
type Job struct {
	ID           string                `json:"id"`
	Status       string                `json:"status"`
	Percentage   int                   `json:"percentage"`
	Message      string                `json:"message"`
	Completed    bool                  `json:"completed"`
	Failed       bool                  `json:"failed"`
	ReportID     *int64                `json:"report_id,omitempty"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Payload      service.SubmitRequest `json:"-"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// NewJob wraps a submission payload in a queued job with a fresh ID
func NewJob(req service.SubmitRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Message:   "queued",
		Payload:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Done reports whether the job has reached a terminal state
func (j *Job) Done() bool {
	return j.Completed || j.Failed
}
