package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/lifecycle"
	"github.com/jwkim/expenseflow/internal/domain/report"
)

// PaymentService records the payment reconciliation of an approved report:
// per-line actual paid amounts, the aggregate, and the justification required
// whenever actual and approved diverge.
type PaymentService interface {
	// Reconcile records the payment. Lines omitted from the payload are
	// treated as paid exactly as approved.
	Reconcile(ctx context.Context, reportID int64, actor report.Actor, lines []PaymentLine, reason string) (*report.ExpenseReport, error)
}

type paymentServiceImpl struct {
	reportSvc ReportService
	reports   ReportRepo
	details   DetailRepo
	tx        TxManager
	logger    *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	reportSvc ReportService,
	reports ReportRepo,
	details DetailRepo,
	tx TxManager,
	logger *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{
		reportSvc: reportSvc,
		reports:   reports,
		details:   details,
		tx:        tx,
		logger:    logger,
	}
}

// Reconcile records the payment of an approved report
func (s *paymentServiceImpl) Reconcile(ctx context.Context, reportID int64, actor report.Actor, lines []PaymentLine, reason string) (*report.ExpenseReport, error) {
	rep, err := s.reportSvc.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.AuthorizePayment(actor, rep); err != nil {
		return nil, err
	}
	if len(rep.Receipts) == 0 {
		return nil, ErrNoReceipts
	}

	byDetail := make(map[int64]PaymentLine, len(lines))
	for _, l := range lines {
		byDetail[l.DetailID] = l
	}

	// Every detail gets an actual amount; defaults fall back to the
	// approved amount and payment method.
	type resolved struct {
		detailID int64
		actual   decimal.Decimal
		method   string
	}
	resolvedLines := make([]resolved, 0, len(rep.Details))
	actualTotal := decimal.Zero
	differs := false
	for _, d := range rep.Details {
		actual := d.Amount
		method := d.PaymentMethod
		if l, ok := byDetail[d.ID]; ok {
			actual = l.ActualAmount
			if l.PaymentMethod != "" {
				method = l.PaymentMethod
			}
		}
		if !actual.Equal(d.Amount) {
			differs = true
		}
		actualTotal = actualTotal.Add(actual)
		resolvedLines = append(resolvedLines, resolved{detailID: d.ID, actual: actual, method: method})
	}
	if !actualTotal.Equal(rep.TotalAmount) {
		differs = true
	}
	if differs && strings.TrimSpace(reason) == "" {
		return nil, ErrBlankReason
	}

	now := time.Now()
	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		for _, l := range resolvedLines {
			if err := s.details.SetActualPayment(tx, l.detailID, l.actual, l.method); err != nil {
				return err
			}
		}
		return s.reports.SetPayment(tx, reportID, actualTotal, reason, now)
	})
	if err != nil {
		s.logger.Error("Failed to reconcile payment",
			zap.Int64("report_id", reportID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Payment reconciled",
		zap.Int64("report_id", reportID),
		zap.String("actual_total", actualTotal.String()),
		zap.Bool("amount_differs", differs),
		zap.String("by", actor.UserID))
	return s.reportSvc.Get(ctx, reportID)
}
