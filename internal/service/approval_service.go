package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/lifecycle"
	"github.com/jwkim/expenseflow/internal/domain/report"
)

// ApprovalService drives the approval chain: setting up approver lines,
// signing, rejecting, cancelling either, and pulling in a backup approver
// mid-flight.
type ApprovalService interface {
	// SetLines replaces the approval chain of a not-yet-signed report
	SetLines(ctx context.Context, reportID int64, actor report.Actor, lines []LineInput) (*report.ExpenseReport, error)

	// Approve signs the acting user's line; when it is the last one the
	// report completes to APPROVED.
	Approve(ctx context.Context, reportID int64, actor report.Actor, signature string) (*report.ExpenseReport, error)

	// Reject rejects the acting user's line and the whole report with it
	Reject(ctx context.Context, reportID int64, actor report.Actor, reason string) (*report.ExpenseReport, error)

	// CancelApproval withdraws the acting user's own signature
	CancelApproval(ctx context.Context, reportID int64, actor report.Actor) (*report.ExpenseReport, error)

	// CancelRejection withdraws the acting user's own rejection, returning
	// the report to WAIT
	CancelRejection(ctx context.Context, reportID int64, actor report.Actor) (*report.ExpenseReport, error)

	// AddApprover appends a backup approver from the acting user's pool.
	// With an empty candidateID the pool must hold exactly one usable
	// candidate, which is picked automatically.
	AddApprover(ctx context.Context, reportID int64, actor report.Actor, candidateID string) (*report.ExpenseReport, error)

	// RegisterBackupApprover adds a candidate to the acting user's own
	// backup pool, from which AddApprover draws
	RegisterBackupApprover(ctx context.Context, actor report.Actor, in LineInput) (*report.BackupApprover, error)
}

type approvalServiceImpl struct {
	reportSvc ReportService
	reports   ReportRepo
	approvals ApprovalRepo
	backups   BackupRepo
	tx        TxManager
	logger    *zap.Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	reportSvc ReportService,
	reports ReportRepo,
	approvals ApprovalRepo,
	backups BackupRepo,
	tx TxManager,
	logger *zap.Logger,
) ApprovalService {
	return &approvalServiceImpl{
		reportSvc: reportSvc,
		reports:   reports,
		approvals: approvals,
		backups:   backups,
		tx:        tx,
		logger:    logger,
	}
}

// SetLines replaces the approval chain of a not-yet-signed report
func (s *approvalServiceImpl) SetLines(ctx context.Context, reportID int64, actor report.Actor, lines []LineInput) (*report.ExpenseReport, error) {
	rep, err := s.reportSvc.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if rep.Status != report.StatusWait && rep.Status != report.StatusDraft {
		return nil, fmt.Errorf("%w: approval lines are fixed once processing starts", ErrConflict)
	}
	if rep.AnySignature() {
		return nil, fmt.Errorf("%w: approval lines are fixed once a line is signed", ErrConflict)
	}
	if len(lines) == 0 {
		return nil, ErrNoApprovers
	}

	// The same approver may be named at most once
	seen := make(map[string]bool, len(lines))
	deduped := make([]LineInput, 0, len(lines))
	for _, in := range lines {
		if seen[in.ApproverID] {
			continue
		}
		seen[in.ApproverID] = true
		deduped = append(deduped, in)
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.approvals.DeleteByReport(tx, reportID); err != nil {
			return err
		}
		for pos, in := range deduped {
			line := &report.ApprovalLine{
				ReportID:         reportID,
				Position:         pos,
				ApproverID:       in.ApproverID,
				ApproverName:     in.ApproverName,
				ApproverPosition: in.ApproverPosition,
				Status:           report.StatusWait,
			}
			if err := s.approvals.Create(tx, line); err != nil {
				return err
			}
		}
		if rep.Status == report.StatusDraft {
			return nil
		}
		return s.reports.UpdateStatus(tx, reportID, report.StatusWait)
	})
	if err != nil {
		s.logger.Error("Failed to set approval lines", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Approval lines set",
		zap.Int64("report_id", reportID),
		zap.Int("approvers", len(deduped)))
	return s.reportSvc.Get(ctx, reportID)
}

// Approve signs the acting user's line
func (s *approvalServiceImpl) Approve(ctx context.Context, reportID int64, actor report.Actor, signature string) (*report.ExpenseReport, error) {
	rep, err := s.reportSvc.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Authorize(lifecycle.TriggerSign, actor, rep); err != nil {
		return nil, err
	}

	line := rep.LineFor(actor.UserID)
	machine := lifecycle.NewLineMachine(rep, line)
	if err := machine.Fire(ctx, lifecycle.TriggerSign); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	now := time.Now()
	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.approvals.Sign(tx, line.ID, signature, now); err != nil {
			return err
		}

		// Reflect the signature locally so the completion guard sees it
		line.Status = report.StatusApproved
		line.SignatureData = signature
		line.ApprovedAt = &now

		if !rep.AllLinesApproved() {
			return nil
		}
		reportMachine := lifecycle.NewReportMachine(rep)
		if err := reportMachine.Fire(ctx, lifecycle.TriggerComplete); err != nil {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return s.reports.UpdateStatus(tx, reportID, string(reportMachine.State()))
	})
	if err != nil {
		s.logger.Error("Failed to approve",
			zap.Int64("report_id", reportID),
			zap.String("approver_id", actor.UserID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Line approved",
		zap.Int64("report_id", reportID),
		zap.String("approver_id", actor.UserID))
	return s.reportSvc.Get(ctx, reportID)
}

// Reject rejects the acting user's line and the whole report with it
func (s *approvalServiceImpl) Reject(ctx context.Context, reportID int64, actor report.Actor, reason string) (*report.ExpenseReport, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrBlankReason
	}

	rep, err := s.reportSvc.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Authorize(lifecycle.TriggerReject, actor, rep); err != nil {
		return nil, err
	}

	line := rep.LineFor(actor.UserID)
	lineMachine := lifecycle.NewLineMachine(rep, line)
	if err := lineMachine.Fire(ctx, lifecycle.TriggerReject); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	reportMachine := lifecycle.NewReportMachine(rep)
	if err := reportMachine.Fire(ctx, lifecycle.TriggerReject); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.approvals.Reject(tx, line.ID, reason); err != nil {
			return err
		}
		return s.reports.UpdateStatus(tx, reportID, string(reportMachine.State()))
	})
	if err != nil {
		s.logger.Error("Failed to reject",
			zap.Int64("report_id", reportID),
			zap.String("approver_id", actor.UserID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Report rejected",
		zap.Int64("report_id", reportID),
		zap.String("approver_id", actor.UserID))
	return s.reportSvc.Get(ctx, reportID)
}

// CancelApproval withdraws the acting user's own signature
func (s *approvalServiceImpl) CancelApproval(ctx context.Context, reportID int64, actor report.Actor) (*report.ExpenseReport, error) {
	rep, err := s.reportSvc.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Authorize(lifecycle.TriggerCancelApproval, actor, rep); err != nil {
		return nil, err
	}

	line := rep.LineFor(actor.UserID)
	machine := lifecycle.NewLineMachine(rep, line)
	if err := machine.Fire(ctx, lifecycle.TriggerCancelApproval); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		return s.approvals.ResetToWait(tx, line.ID)
	})
	if err != nil {
		s.logger.Error("Failed to cancel approval",
			zap.Int64("report_id", reportID),
			zap.String("approver_id", actor.UserID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Approval cancelled",
		zap.Int64("report_id", reportID),
		zap.String("approver_id", actor.UserID))
	return s.reportSvc.Get(ctx, reportID)
}

// CancelRejection withdraws the acting user's own rejection. The report
// returns to WAIT; other approvers' lines keep whatever state they held.
func (s *approvalServiceImpl) CancelRejection(ctx context.Context, reportID int64, actor report.Actor) (*report.ExpenseReport, error) {
	rep, err := s.reportSvc.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Authorize(lifecycle.TriggerCancelRejection, actor, rep); err != nil {
		return nil, err
	}

	line := rep.LineFor(actor.UserID)
	lineMachine := lifecycle.NewLineMachine(rep, line)
	if err := lineMachine.Fire(ctx, lifecycle.TriggerCancelRejection); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	reportMachine := lifecycle.NewReportMachine(rep)
	if err := reportMachine.Fire(ctx, lifecycle.TriggerCancelRejection); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.approvals.ResetToWait(tx, line.ID); err != nil {
			return err
		}
		return s.reports.UpdateStatus(tx, reportID, string(reportMachine.State()))
	})
	if err != nil {
		s.logger.Error("Failed to cancel rejection",
			zap.Int64("report_id", reportID),
			zap.String("approver_id", actor.UserID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Rejection cancelled",
		zap.Int64("report_id", reportID),
		zap.String("approver_id", actor.UserID))
	return s.reportSvc.Get(ctx, reportID)
}

// AddApprover appends a backup approver from the acting user's pool
func (s *approvalServiceImpl) AddApprover(ctx context.Context, reportID int64, actor report.Actor, candidateID string) (*report.ExpenseReport, error) {
	rep, err := s.reportSvc.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.AuthorizeAddApprover(actor, rep); err != nil {
		return nil, err
	}

	pool, err := s.backups.ListByOwner(actor.UserID)
	if err != nil {
		return nil, err
	}

	// Candidates already holding a line are not usable
	usable := make([]*report.BackupApprover, 0, len(pool))
	for _, b := range pool {
		if !rep.HasApprover(b.ApproverID) {
			usable = append(usable, b)
		}
	}

	var chosen *report.BackupApprover
	switch {
	case candidateID != "":
		if rep.HasApprover(candidateID) {
			return nil, ErrApproverPresent
		}
		for _, b := range usable {
			if b.ApproverID == candidateID {
				chosen = b
				break
			}
		}
		if chosen == nil {
			return nil, ErrNoBackupCandidate
		}
	case len(usable) == 0:
		return nil, ErrNoBackupCandidate
	case len(usable) == 1:
		chosen = usable[0]
	default:
		return nil, ErrAmbiguousCandidate
	}

	line := &report.ApprovalLine{
		ReportID:         reportID,
		Position:         len(rep.ApprovalLines),
		ApproverID:       chosen.ApproverID,
		ApproverName:     chosen.ApproverName,
		ApproverPosition: chosen.ApproverPosition,
		Status:           report.StatusWait,
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.approvals.Create(tx, line); err != nil {
			return err
		}
		// A fully approved report reopens when a new line joins the chain
		if rep.Status == report.StatusApproved {
			return s.reports.UpdateStatus(tx, reportID, report.StatusWait)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to add approver",
			zap.Int64("report_id", reportID),
			zap.String("candidate_id", chosen.ApproverID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Approver added",
		zap.Int64("report_id", reportID),
		zap.String("approver_id", chosen.ApproverID),
		zap.String("requested_by", actor.UserID))
	return s.reportSvc.Get(ctx, reportID)
}

// RegisterBackupApprover adds a candidate to the acting user's own backup pool
func (s *approvalServiceImpl) RegisterBackupApprover(ctx context.Context, actor report.Actor, in LineInput) (*report.BackupApprover, error) {
	if strings.TrimSpace(in.ApproverID) == "" || in.ApproverID == actor.UserID {
		return nil, ErrInvalidCandidate
	}

	pool, err := s.backups.ListByOwner(actor.UserID)
	if err != nil {
		return nil, err
	}
	for _, b := range pool {
		if b.ApproverID == in.ApproverID {
			return nil, ErrCandidateRegistered
		}
	}

	b := &report.BackupApprover{
		OwnerID:          actor.UserID,
		ApproverID:       in.ApproverID,
		ApproverName:     in.ApproverName,
		ApproverPosition: in.ApproverPosition,
	}
	if err := s.backups.Create(b); err != nil {
		s.logger.Error("Failed to register backup approver",
			zap.String("owner_id", actor.UserID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Backup approver registered",
		zap.String("owner_id", actor.UserID),
		zap.String("approver_id", b.ApproverID))
	return b, nil
}
