package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/progress"
	"github.com/jwkim/expenseflow/internal/service"
)

// Unified progress bands. Submission fills 0-30, server-side materialization
// 30-60, approval lines and receipt uploads 60-95, and finalization tops out
// at 100.
const (
	submitCeiling  = 30
	processCeiling = 60
	linesCeiling   = 70
	uploadCeiling  = 95

	defaultPollInterval = 500 * time.Millisecond
	defaultPollAttempts = 60
)

// Result summarizes a finished creation run
type Result struct {
	ReportID        int64
	Report          *report.ExpenseReport
	UploadedCount   int
	FailedUploads   int
	ApprovalWarning string
	Summary         string
}

// Runner executes the full creation workflow against the API, publishing
// progress snapshots to the bus as it goes.
type Runner struct {
	client  *Client
	matcher *Matcher
	bus     *progress.Bus
	logger  *zap.Logger

	pollInterval time.Duration
	pollAttempts int

	lastPercent int
}

// NewRunner creates a new workflow runner
func NewRunner(client *Client, bus *progress.Bus, logger *zap.Logger) *Runner {
	return &Runner{
		client:       client,
		matcher:      NewMatcher(logger),
		bus:          bus,
		logger:       logger,
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
	}
}

// emit publishes a snapshot, clamped so the unified percentage never moves
// backwards within a run.
func (r *Runner) emit(stage progress.Stage, percent int, message string) {
	if percent < r.lastPercent {
		percent = r.lastPercent
	}
	r.lastPercent = percent
	r.bus.Publish(progress.NewEvent(stage, percent, message))
}

func (r *Runner) fail(message string, err error) error {
	r.bus.Publish(progress.NewFailure(r.lastPercent, message, err.Error()))
	return err
}

// Run executes the creation workflow: submit, poll the creation job, set the
// approval chain, upload matched receipts, and fetch the final report.
func (r *Runner) Run(ctx context.Context, req service.SubmitRequest, lines []service.LineInput, items []LocalItem) (*Result, error) {
	r.lastPercent = 0

	// Submission: payload upload fills the first band
	r.emit(progress.StageSubmitting, 0, "submitting expense report")
	jobID, err := r.client.SubmitExpenses(ctx, req, func(frac float64) {
		r.emit(progress.StageSubmitting, int(frac*submitCeiling), "submitting expense report")
	})
	if err != nil {
		return nil, r.fail("submission failed", err)
	}
	r.emit(progress.StageSubmitting, submitCeiling, "submission accepted")

	// Materialization: poll the job under a single deadline instead of
	// counting attempts
	reportID, err := r.awaitJob(ctx, jobID)
	if err != nil {
		return nil, r.fail("report creation failed", err)
	}
	r.emit(progress.StageProcessing, processCeiling, "expense report created")

	result := &Result{ReportID: reportID}

	// Approval chain: skipped entirely when the submission carries the
	// no-approval payroll category, which the server materializes straight
	// to APPROVED. A failure here leaves a usable report, so it warns
	// instead of aborting the run.
	if len(lines) > 0 && !req.NoApprovalNeeded() {
		r.emit(progress.StageApprovalLines, processCeiling, "setting approval lines")
		if err := r.client.SetApprovalLines(ctx, reportID, lines); err != nil {
			result.ApprovalWarning = err.Error()
			r.logger.Warn("Failed to set approval lines",
				zap.Int64("report_id", reportID),
				zap.Error(err))
			r.emit(progress.StageApprovalLines, linesCeiling,
				"approval lines could not be set, configure them from the report page")
		} else {
			r.emit(progress.StageApprovalLines, linesCeiling, "approval lines set")
		}
	}

	if err := r.uploadReceipts(ctx, reportID, items, result); err != nil {
		return nil, r.fail("receipt upload failed", err)
	}

	// Finalization
	r.emit(progress.StageDone, uploadCeiling, "finalizing")
	rep, err := r.client.GetReport(ctx, reportID)
	if err != nil {
		return nil, r.fail("failed to fetch created report", err)
	}
	result.Report = rep

	r.emit(progress.StageDone, 100, result.Summary)
	return result, nil
}

// awaitJob polls the creation job until it completes, fails, or the poll
// budget runs out. Server-side percentages are rescaled into the processing
// band.
func (r *Runner) awaitJob(ctx context.Context, jobID string) (int64, error) {
	budget := time.Duration(r.pollAttempts) * r.pollInterval
	pollCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, fmt.Errorf("report creation did not finish within %s", budget)
		case <-ticker.C:
		}

		j, err := r.client.JobStatus(pollCtx, jobID)
		if err != nil {
			// Transient poll errors are retried until the deadline
			r.logger.Warn("Job poll failed", zap.String("job_id", jobID), zap.Error(err))
			continue
		}

		if j.Failed {
			return 0, fmt.Errorf("server rejected the submission: %s", j.ErrorMessage)
		}
		if j.Completed {
			if j.ReportID == nil {
				return 0, fmt.Errorf("job %s completed without a report", jobID)
			}
			return *j.ReportID, nil
		}

		scaled := submitCeiling + j.Percentage*(processCeiling-submitCeiling)/100
		r.emit(progress.StageProcessing, scaled, j.Message)
	}
}

// uploadReceipts matches local items to persisted details and uploads their
// receipt files one at a time, spreading progress across the upload band.
func (r *Runner) uploadReceipts(ctx context.Context, reportID int64, items []LocalItem, result *Result) error {
	withReceipts := make([]LocalItem, 0, len(items))
	total := 0
	for _, item := range items {
		if len(item.ReceiptPaths) > 0 {
			withReceipts = append(withReceipts, item)
			total += len(item.ReceiptPaths)
		}
	}
	if total == 0 {
		result.Summary = "expense report created"
		return nil
	}

	rep, err := r.client.GetReport(ctx, reportID)
	if err != nil {
		return err
	}
	matches := r.matcher.Match(withReceipts, rep.Details)

	done := 0
	for _, match := range matches {
		for _, path := range match.Item.ReceiptPaths {
			done++
			r.emit(progress.StageReceipts,
				linesCeiling+done*(uploadCeiling-linesCeiling)/total,
				fmt.Sprintf("uploading receipts (%d/%d)", done, total))

			if !match.Matched {
				result.FailedUploads++
				continue
			}

			detailID := match.DetailID
			if err := r.client.UploadReceipt(ctx, reportID, &detailID, path); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("Receipt upload failed",
					zap.Int64("report_id", reportID),
					zap.String("path", path),
					zap.Error(err))
				result.FailedUploads++
				continue
			}
			result.UploadedCount++
		}
	}

	if result.FailedUploads > 0 {
		result.Summary = fmt.Sprintf("%d receipts uploaded, %d failed; re-upload them from the detail page",
			result.UploadedCount, result.FailedUploads)
	} else {
		result.Summary = fmt.Sprintf("%d receipts uploaded", result.UploadedCount)
	}
	return nil
}
