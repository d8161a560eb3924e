package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwkim/expenseflow/internal/domain/lifecycle"
	"github.com/jwkim/expenseflow/internal/domain/report"
)

var payer = report.Actor{UserID: "u-pay", Name: "Pat Pays", Role: report.RolePayment}

// approvedEnv builds a fully approved two-line report with one receipt
func approvedEnv(t *testing.T) (*testEnv, *report.ExpenseReport) {
	t.Helper()
	env := newTestEnv()
	ctx := context.Background()
	drafter := report.Actor{UserID: "u-drafter", Role: report.RoleEmployee}

	rep, err := env.reportSvc.Materialize(ctx, submitReq(
		completeInput("k1", "SUPPLIES", "10.00"),
		completeInput("k2", "TRAVEL", "20.00"),
	), nil)
	require.NoError(t, err)

	_, err = env.approvalSvc.SetLines(ctx, rep.ID, drafter, []LineInput{{ApproverID: "u-boss"}})
	require.NoError(t, err)
	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)

	_, err = env.receiptSvc.Upload(ctx, rep.ID, nil, drafter,
		strings.NewReader("receipt"), "receipt.pdf", "application/pdf", 7)
	require.NoError(t, err)

	rep, err = env.reportSvc.Get(ctx, rep.ID)
	require.NoError(t, err)
	return env, rep
}

func TestReconcile_ExactPayment(t *testing.T) {
	env, rep := approvedEnv(t)

	got, err := env.paymentSvc.Reconcile(context.Background(), rep.ID, payer, nil, "")
	require.NoError(t, err)

	require.NotNil(t, got.ActualPaidAmount)
	assert.Equal(t, "30", got.ActualPaidAmount.String())
	assert.NotNil(t, got.PaidAt)
	for _, d := range got.Details {
		require.NotNil(t, d.ActualPaidAmount)
		assert.True(t, d.ActualPaidAmount.Equal(d.Amount))
	}
}

func TestReconcile_DifferenceNeedsReason(t *testing.T) {
	env, rep := approvedEnv(t)
	ctx := context.Background()

	lines := []PaymentLine{
		{DetailID: rep.Details[0].ID, ActualAmount: decimal.RequireFromString("8.00")},
	}

	_, err := env.paymentSvc.Reconcile(ctx, rep.ID, payer, lines, "  ")
	assert.ErrorIs(t, err, ErrBlankReason)

	got, err := env.paymentSvc.Reconcile(ctx, rep.ID, payer, lines, "partial refund applied")
	require.NoError(t, err)
	assert.Equal(t, "28", got.ActualPaidAmount.String())
	assert.Equal(t, "partial refund applied", got.AmountDifferenceNote)
	assert.Equal(t, "8", got.Details[0].ActualPaidAmount.String())
	// Untouched lines default to the approved amount
	assert.Equal(t, "20", got.Details[1].ActualPaidAmount.String())
}

func TestReconcile_PaymentMethodOverride(t *testing.T) {
	env, rep := approvedEnv(t)

	lines := []PaymentLine{
		{DetailID: rep.Details[0].ID, ActualAmount: rep.Details[0].Amount, PaymentMethod: report.PaymentBankTransfer},
	}
	got, err := env.paymentSvc.Reconcile(context.Background(), rep.ID, payer, lines, "")
	require.NoError(t, err)
	assert.Equal(t, report.PaymentBankTransfer, got.Details[0].PaymentMethod)
	assert.Equal(t, report.PaymentCash, got.Details[1].PaymentMethod)
}

func TestReconcile_Guards(t *testing.T) {
	env, rep := approvedEnv(t)
	ctx := context.Background()

	// Wrong role
	_, err := env.paymentSvc.Reconcile(ctx, rep.ID, report.Actor{UserID: "u-x", Role: report.RoleEmployee}, nil, "")
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)

	// Not approved
	draft, err := env.reportSvc.CreateDraft(ctx, submitReq(completeInput("k9", "SUPPLIES", "5.00")))
	require.NoError(t, err)
	_, err = env.paymentSvc.Reconcile(ctx, draft.ID, payer, nil, "")
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)
}

func TestReconcile_RequiresReceipt(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	drafter := report.Actor{UserID: "u-drafter"}

	rep, err := env.reportSvc.Materialize(ctx, submitReq(completeInput("k1", "SUPPLIES", "10.00")), nil)
	require.NoError(t, err)
	_, err = env.approvalSvc.SetLines(ctx, rep.ID, drafter, []LineInput{{ApproverID: "u-boss"}})
	require.NoError(t, err)
	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)

	_, err = env.paymentSvc.Reconcile(ctx, rep.ID, payer, nil, "")
	assert.ErrorIs(t, err, ErrNoReceipts)
}
