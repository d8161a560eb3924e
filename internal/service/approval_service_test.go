package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwkim/expenseflow/internal/domain/lifecycle"
	"github.com/jwkim/expenseflow/internal/domain/report"
)

// waitingEnv materializes a report with two approver lines and returns it
func waitingEnv(t *testing.T) (*testEnv, *report.ExpenseReport) {
	t.Helper()
	env := newTestEnv()
	ctx := context.Background()
	drafter := report.Actor{UserID: "u-drafter", Role: report.RoleEmployee}

	rep, err := env.reportSvc.Materialize(ctx, submitReq(completeInput("k1", "SUPPLIES", "10.00")), nil)
	require.NoError(t, err)
	rep, err = env.approvalSvc.SetLines(ctx, rep.ID, drafter, []LineInput{
		{ApproverID: "u-boss", ApproverName: "Bo Boss", ApproverPosition: "Manager"},
		{ApproverID: "u-cfo", ApproverName: "Cleo Finch", ApproverPosition: "CFO"},
	})
	require.NoError(t, err)
	return env, rep
}

func TestSetLines_DedupesAndRequiresApprovers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	drafter := report.Actor{UserID: "u-drafter"}

	rep, err := env.reportSvc.Materialize(ctx, submitReq(completeInput("k1", "SUPPLIES", "10.00")), nil)
	require.NoError(t, err)

	_, err = env.approvalSvc.SetLines(ctx, rep.ID, drafter, nil)
	assert.ErrorIs(t, err, ErrNoApprovers)

	got, err := env.approvalSvc.SetLines(ctx, rep.ID, drafter, []LineInput{
		{ApproverID: "u-boss"}, {ApproverID: "u-boss"}, {ApproverID: "u-cfo"},
	})
	require.NoError(t, err)
	require.Len(t, got.ApprovalLines, 2)
	assert.Equal(t, "u-boss", got.ApprovalLines[0].ApproverID)
	assert.Equal(t, "u-cfo", got.ApprovalLines[1].ApproverID)
}

func TestSetLines_DeniedAfterSignature(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()

	_, err := env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)

	_, err = env.approvalSvc.SetLines(ctx, rep.ID, report.Actor{UserID: "u-drafter"}, []LineInput{
		{ApproverID: "u-other"},
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApprove_LastSignatureCompletesReport(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()

	got, err := env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig-boss")
	require.NoError(t, err)
	assert.Equal(t, report.StatusWait, got.Status)

	got, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-cfo"}, "sig-cfo")
	require.NoError(t, err)
	assert.Equal(t, report.StatusApproved, got.Status)
	for _, l := range got.ApprovalLines {
		assert.True(t, l.Signed())
	}
}

func TestApprove_NotAnApprover(t *testing.T) {
	env, rep := waitingEnv(t)

	_, err := env.approvalSvc.Approve(context.Background(), rep.ID, report.Actor{UserID: "u-stranger"}, "sig")
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)
}

func TestReject_BlocksOtherApprovers(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()

	got, err := env.approvalSvc.Reject(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "not in budget")
	require.NoError(t, err)
	assert.Equal(t, report.StatusRejected, got.Status)

	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-cfo"}, "sig")
	assert.ErrorIs(t, err, lifecycle.ErrRejectionPending)
	_, err = env.approvalSvc.Reject(ctx, rep.ID, report.Actor{UserID: "u-cfo"}, "me too")
	assert.ErrorIs(t, err, lifecycle.ErrRejectionPending)
}

func TestReject_RequiresReason(t *testing.T) {
	env, rep := waitingEnv(t)

	_, err := env.approvalSvc.Reject(context.Background(), rep.ID, report.Actor{UserID: "u-boss"}, "   ")
	assert.ErrorIs(t, err, ErrBlankReason)
}

func TestRegisterBackupApprover(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()
	boss := report.Actor{UserID: "u-boss"}

	_, err := env.approvalSvc.RegisterBackupApprover(ctx, boss, LineInput{ApproverID: "  "})
	assert.ErrorIs(t, err, ErrInvalidCandidate)
	_, err = env.approvalSvc.RegisterBackupApprover(ctx, boss, LineInput{ApproverID: "u-boss"})
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	b, err := env.approvalSvc.RegisterBackupApprover(ctx, boss, LineInput{
		ApproverID: "u-backup", ApproverName: "Bea Backup", ApproverPosition: "Director",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-boss", b.OwnerID)
	assert.NotZero(t, b.ID)

	_, err = env.approvalSvc.RegisterBackupApprover(ctx, boss, LineInput{ApproverID: "u-backup"})
	assert.ErrorIs(t, err, ErrCandidateRegistered)

	// The registered candidate is immediately usable by AddApprover
	_, err = env.approvalSvc.Approve(ctx, rep.ID, boss, "sig")
	require.NoError(t, err)
	got, err := env.approvalSvc.AddApprover(ctx, rep.ID, boss, "")
	require.NoError(t, err)
	require.Len(t, got.ApprovalLines, 3)
	assert.Equal(t, "u-backup", got.ApprovalLines[2].ApproverID)
}

func TestCancelApproval_BeforeCompletionOnly(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()

	_, err := env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)

	got, err := env.approvalSvc.CancelApproval(ctx, rep.ID, report.Actor{UserID: "u-boss"})
	require.NoError(t, err)
	assert.Equal(t, report.StatusWait, got.LineFor("u-boss").Status)
	assert.Empty(t, got.LineFor("u-boss").SignatureData)

	// Once the report completes, signatures are final
	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)
	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-cfo"}, "sig")
	require.NoError(t, err)

	_, err = env.approvalSvc.CancelApproval(ctx, rep.ID, report.Actor{UserID: "u-boss"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelRejection_RestoresWait(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()

	_, err := env.approvalSvc.Reject(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "wrong receipt")
	require.NoError(t, err)

	got, err := env.approvalSvc.CancelRejection(ctx, rep.ID, report.Actor{UserID: "u-boss"})
	require.NoError(t, err)
	assert.Equal(t, report.StatusWait, got.Status)
	assert.Equal(t, report.StatusWait, got.LineFor("u-boss").Status)

	// Approvals proceed again after the rejection is withdrawn
	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-cfo"}, "sig")
	require.NoError(t, err)
}

func TestCancelRejection_OnlyTheRejector(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()

	_, err := env.approvalSvc.Reject(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "wrong receipt")
	require.NoError(t, err)

	_, err = env.approvalSvc.CancelRejection(ctx, rep.ID, report.Actor{UserID: "u-cfo"})
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)
}

func TestAddApprover_AutoSelectsSoleCandidate(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()
	env.backups.pool = []*report.BackupApprover{
		{OwnerID: "u-boss", ApproverID: "u-backup", ApproverName: "Bea Backup"},
	}

	// Available only after the first signature
	_, err := env.approvalSvc.AddApprover(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "")
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)

	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)

	got, err := env.approvalSvc.AddApprover(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "")
	require.NoError(t, err)
	require.Len(t, got.ApprovalLines, 3)
	added := got.ApprovalLines[2]
	assert.Equal(t, "u-backup", added.ApproverID)
	assert.Equal(t, 2, added.Position)
	assert.Equal(t, report.StatusWait, added.Status)
}

func TestAddApprover_AmbiguousAndPresent(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()
	env.backups.pool = []*report.BackupApprover{
		{OwnerID: "u-boss", ApproverID: "u-backup1"},
		{OwnerID: "u-boss", ApproverID: "u-backup2"},
		{OwnerID: "u-boss", ApproverID: "u-cfo"},
	}

	_, err := env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)

	_, err = env.approvalSvc.AddApprover(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "")
	assert.ErrorIs(t, err, ErrAmbiguousCandidate)

	_, err = env.approvalSvc.AddApprover(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "u-cfo")
	assert.ErrorIs(t, err, ErrApproverPresent)

	got, err := env.approvalSvc.AddApprover(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "u-backup2")
	require.NoError(t, err)
	assert.Len(t, got.ApprovalLines, 3)
}

func TestAddApprover_ReopensApprovedReport(t *testing.T) {
	env, rep := waitingEnv(t)
	ctx := context.Background()
	env.backups.pool = []*report.BackupApprover{
		{OwnerID: "u-boss", ApproverID: "u-backup"},
	}

	_, err := env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "sig")
	require.NoError(t, err)
	_, err = env.approvalSvc.Approve(ctx, rep.ID, report.Actor{UserID: "u-cfo"}, "sig")
	require.NoError(t, err)

	got, err := env.approvalSvc.AddApprover(ctx, rep.ID, report.Actor{UserID: "u-boss"}, "")
	require.NoError(t, err)
	assert.Equal(t, report.StatusWait, got.Status)
	assert.False(t, got.AllLinesApproved())
}
