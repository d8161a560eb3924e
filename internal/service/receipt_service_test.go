package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

func TestUpload_StoresFileAndRecord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	uploader := report.Actor{UserID: "u-drafter", Role: report.RoleEmployee}

	detailID := int64(7)
	rc, err := env.receiptSvc.Upload(ctx, 1, &detailID, uploader,
		strings.NewReader("pdf bytes"), "taxi.pdf", "application/pdf", 9)
	require.NoError(t, err)

	assert.Equal(t, int64(1), rc.ReportID)
	require.NotNil(t, rc.DetailID)
	assert.Equal(t, detailID, *rc.DetailID)
	assert.Equal(t, "u-drafter", rc.UploaderID)

	got, f, err := env.receiptSvc.Open(ctx, rc.ID)
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(content))
	assert.Equal(t, "taxi.pdf", got.FileName)
}

func TestUpload_Limits(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	uploader := report.Actor{UserID: "u-drafter"}

	_, err := env.receiptSvc.Upload(ctx, 1, nil, uploader,
		strings.NewReader(""), "big.pdf", "application/pdf", report.MaxReceiptSize+1)
	assert.ErrorIs(t, err, ErrReceiptTooLarge)

	_, err = env.receiptSvc.Upload(ctx, 1, nil, uploader,
		strings.NewReader("zip"), "archive.zip", "application/zip", 3)
	assert.ErrorIs(t, err, ErrUnsupportedMime)
}

func TestDelete_UploaderOrElevatedOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	uploader := report.Actor{UserID: "u-drafter", Role: report.RoleEmployee}

	rc, err := env.receiptSvc.Upload(ctx, 1, nil, uploader,
		strings.NewReader("img"), "lunch.jpg", "image/jpeg", 3)
	require.NoError(t, err)

	err = env.receiptSvc.Delete(ctx, rc.ID, report.Actor{UserID: "u-other", Role: report.RoleEmployee})
	assert.ErrorIs(t, err, ErrNotDeletable)

	err = env.receiptSvc.Delete(ctx, rc.ID, report.Actor{UserID: "u-admin", Role: report.RoleAdmin})
	require.NoError(t, err)

	// Both the record and the stored blob are gone
	_, _, err = env.receiptSvc.Open(ctx, rc.ID)
	assert.Error(t, err)
	assert.Empty(t, env.store.files)
}

func TestUpload_CleansUpOnRecordFailure(t *testing.T) {
	env := newTestEnv()
	// Force the repo write to fail after the blob is stored
	env.receiptSvc = NewReceiptService(failingReceiptRepo{}, env.store, fakeTx{}, zapNop())

	_, err := env.receiptSvc.Upload(context.Background(), 1, nil, report.Actor{UserID: "u-d"},
		strings.NewReader("img"), "lunch.jpg", "image/jpeg", 3)
	assert.Error(t, err)
	assert.Empty(t, env.store.files)
}
