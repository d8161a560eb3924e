package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/lifecycle"
	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/validate"
)

// ReportService owns the expense-report document lifecycle: materializing
// submitted reports, drafts, edits under the edit-eligibility guard, and
// drafter-initiated deletion.
type ReportService interface {
	// Materialize turns a submission payload into a persisted report.
	// Called by the creation-job worker; onProgress receives 0-100
	// milestones for job-status polling.
	Materialize(ctx context.Context, req SubmitRequest, onProgress func(pct int, msg string)) (*report.ExpenseReport, error)

	// CreateDraft persists a report without the completeness gate
	CreateDraft(ctx context.Context, req SubmitRequest) (*report.ExpenseReport, error)

	// Update rewrites an editable report's items. A rejected report
	// returns to WAIT with its approval lines reset unless asDraft is set.
	Update(ctx context.Context, id int64, actor report.Actor, req SubmitRequest, asDraft bool) (*report.ExpenseReport, error)

	// Delete removes a report under the same guard as Update
	Delete(ctx context.Context, id int64, actor report.Actor) error

	// Get returns the full report with details, lines and receipts
	Get(ctx context.Context, id int64) (*report.ExpenseReport, error)

	// List returns a drafter's report headers, newest first
	List(ctx context.Context, drafterID string, limit, offset int) ([]*report.ExpenseReport, error)

	// SetTaxDeductible flips a line's tax-deductibility, tax accountants only
	SetTaxDeductible(ctx context.Context, detailID int64, actor report.Actor, deductible bool, reason string) error

	// MarkTaxCollected flags a report as picked up by downstream tax
	// processing, which freezes drafter edits for good
	MarkTaxCollected(ctx context.Context, reportID int64, actor report.Actor, collected bool) error
}

type reportServiceImpl struct {
	reports   ReportRepo
	details   DetailRepo
	approvals ApprovalRepo
	receipts  ReceiptRepo
	tx        TxManager
	logger    *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	reports ReportRepo,
	details DetailRepo,
	approvals ApprovalRepo,
	receipts ReceiptRepo,
	tx TxManager,
	logger *zap.Logger,
) ReportService {
	return &reportServiceImpl{
		reports:   reports,
		details:   details,
		approvals: approvals,
		receipts:  receipts,
		tx:        tx,
		logger:    logger,
	}
}

// Materialize turns a submission payload into a persisted report
func (s *reportServiceImpl) Materialize(ctx context.Context, req SubmitRequest, onProgress func(pct int, msg string)) (*report.ExpenseReport, error) {
	if onProgress == nil {
		onProgress = func(int, string) {}
	}

	onProgress(10, "validating line items")

	candidates := make([]*report.ExpenseDetail, 0, len(req.Details))
	for i, in := range req.Details {
		candidates = append(candidates, in.toDetail(i))
	}

	// Incomplete items are excluded from the submission, not rejected
	submittable := validate.Submittable(candidates)
	if len(submittable) == 0 {
		return nil, ErrNoCompleteItems
	}

	noApproval := validate.HasNoApprovalCategory(submittable)
	status := report.StatusWait
	if noApproval {
		status = report.StatusApproved
	}

	rep := &report.ExpenseReport{
		DrafterID:   req.DrafterID,
		DrafterName: req.DrafterName,
		ReportDate:  req.ReportDate,
		Status:      status,
		TotalAmount: validate.Total(submittable),
	}

	err := s.tx.WithTransaction(func(tx *sql.Tx) error {
		onProgress(40, "creating expense report")
		if err := s.reports.Create(tx, rep); err != nil {
			return err
		}

		onProgress(70, "saving line items")
		for pos, d := range submittable {
			d.ReportID = rep.ID
			d.Position = pos
			if err := s.details.Create(tx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to materialize report",
			zap.String("drafter_id", req.DrafterID),
			zap.Error(err))
		return nil, err
	}

	rep.Details = submittable
	onProgress(100, "expense report created")

	s.logger.Info("Report materialized",
		zap.Int64("report_id", rep.ID),
		zap.String("status", rep.Status),
		zap.Int("items", len(submittable)),
		zap.Bool("no_approval_category", noApproval))
	return rep, nil
}

// CreateDraft persists a report without the completeness gate. Incomplete
// items are kept so the drafter can finish them later; the total still only
// counts complete ones.
func (s *reportServiceImpl) CreateDraft(ctx context.Context, req SubmitRequest) (*report.ExpenseReport, error) {
	details := make([]*report.ExpenseDetail, 0, len(req.Details))
	for i, in := range req.Details {
		details = append(details, in.toDetail(i))
	}

	rep := &report.ExpenseReport{
		DrafterID:   req.DrafterID,
		DrafterName: req.DrafterName,
		ReportDate:  req.ReportDate,
		Status:      report.StatusDraft,
		TotalAmount: validate.Total(details),
	}

	err := s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.reports.Create(tx, rep); err != nil {
			return err
		}
		for _, d := range details {
			d.ReportID = rep.ID
			if err := s.details.Create(tx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create draft", zap.String("drafter_id", req.DrafterID), zap.Error(err))
		return nil, err
	}

	rep.Details = details
	s.logger.Info("Draft created", zap.Int64("report_id", rep.ID))
	return rep, nil
}

// Update rewrites an editable report's items
func (s *reportServiceImpl) Update(ctx context.Context, id int64, actor report.Actor, req SubmitRequest, asDraft bool) (*report.ExpenseReport, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.AuthorizeEdit(actor, rep); err != nil {
		return nil, err
	}

	details := make([]*report.ExpenseDetail, 0, len(req.Details))
	for i, in := range req.Details {
		d := in.toDetail(i)
		d.ReportID = id
		details = append(details, d)
	}
	if !asDraft && len(validate.Submittable(details)) == 0 {
		return nil, ErrNoCompleteItems
	}

	resubmitted := rep.Status == report.StatusRejected && !asDraft

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.details.DeleteByReport(tx, id); err != nil {
			return err
		}
		for _, d := range details {
			if err := s.details.Create(tx, d); err != nil {
				return err
			}
		}

		rep.ReportDate = req.ReportDate
		rep.TotalAmount = validate.Total(details)

		// Editing a rejected report resubmits it: the report and every
		// line return to WAIT so the chain starts over.
		if resubmitted {
			machine := lifecycle.NewReportMachine(rep)
			if err := machine.Fire(ctx, lifecycle.TriggerResubmit); err != nil {
				return fmt.Errorf("%w: %v", ErrConflict, err)
			}
			rep.Status = string(machine.State())
			if err := s.approvals.ResetAllToWait(tx, id); err != nil {
				return err
			}
		}

		return s.reports.UpdateHeader(tx, rep)
	})
	if err != nil {
		s.logger.Error("Failed to update report", zap.Int64("report_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Report updated",
		zap.Int64("report_id", id),
		zap.Bool("resubmitted", resubmitted))
	return s.Get(ctx, id)
}

// Delete removes a report under the edit-eligibility guard
func (s *reportServiceImpl) Delete(ctx context.Context, id int64, actor report.Actor) error {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := lifecycle.AuthorizeEdit(actor, rep); err != nil {
		return err
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		return s.reports.Delete(tx, id)
	})
	if err != nil {
		s.logger.Error("Failed to delete report", zap.Int64("report_id", id), zap.Error(err))
		return err
	}

	s.logger.Info("Report deleted", zap.Int64("report_id", id), zap.String("by", actor.UserID))
	return nil
}

// Get returns the full report with details, lines and receipts
func (s *reportServiceImpl) Get(ctx context.Context, id int64) (*report.ExpenseReport, error) {
	rep, err := s.reports.GetByID(nil, id)
	if err != nil {
		return nil, err
	}

	if rep.Details, err = s.details.ListByReport(nil, id); err != nil {
		return nil, err
	}
	if rep.ApprovalLines, err = s.approvals.ListByReport(nil, id); err != nil {
		return nil, err
	}
	if rep.Receipts, err = s.receipts.ListByReport(nil, id); err != nil {
		return nil, err
	}
	return rep, nil
}

// List returns a drafter's report headers, newest first
func (s *reportServiceImpl) List(ctx context.Context, drafterID string, limit, offset int) ([]*report.ExpenseReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.reports.ListByDrafter(drafterID, limit, offset)
}

// SetTaxDeductible flips a line's tax-deductibility flag
func (s *reportServiceImpl) SetTaxDeductible(ctx context.Context, detailID int64, actor report.Actor, deductible bool, reason string) error {
	if err := lifecycle.AuthorizeTaxEdit(actor); err != nil {
		return err
	}
	return s.details.SetTaxDeductible(nil, detailID, deductible, reason)
}

// MarkTaxCollected flags a report as picked up by downstream tax processing
func (s *reportServiceImpl) MarkTaxCollected(ctx context.Context, reportID int64, actor report.Actor, collected bool) error {
	if err := lifecycle.AuthorizeTaxEdit(actor); err != nil {
		return err
	}
	if _, err := s.reports.GetByID(nil, reportID); err != nil {
		return err
	}
	if err := s.reports.SetTaxCollected(nil, reportID, collected); err != nil {
		return err
	}

	s.logger.Info("Tax collection flag set",
		zap.Int64("report_id", reportID),
		zap.Bool("collected", collected),
		zap.String("by", actor.UserID))
	return nil
}
