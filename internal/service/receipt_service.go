package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// ReceiptService manages receipt attachments: upload with size and MIME
// limits, listing, download, and owner-or-admin deletion.
type ReceiptService interface {
	// Upload stores a receipt file and attaches it to the report, and to a
	// specific detail when detailID is non-nil.
	Upload(ctx context.Context, reportID int64, detailID *int64, actor report.Actor, file io.Reader, fileName, mimeType string, size int64) (*report.Receipt, error)

	// List returns the report's receipts
	List(ctx context.Context, reportID int64) ([]*report.Receipt, error)

	// Open returns the stored file content for download
	Open(ctx context.Context, receiptID int64) (*report.Receipt, io.ReadCloser, error)

	// Delete removes a receipt record and its stored file
	Delete(ctx context.Context, receiptID int64, actor report.Actor) error
}

type receiptServiceImpl struct {
	receipts ReceiptRepo
	store    FileStore
	tx       TxManager
	logger   *zap.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(receipts ReceiptRepo, store FileStore, tx TxManager, logger *zap.Logger) ReceiptService {
	return &receiptServiceImpl{
		receipts: receipts,
		store:    store,
		tx:       tx,
		logger:   logger,
	}
}

// Upload stores a receipt file and attaches it to the report
func (s *receiptServiceImpl) Upload(ctx context.Context, reportID int64, detailID *int64, actor report.Actor, file io.Reader, fileName, mimeType string, size int64) (*report.Receipt, error) {
	if size > report.MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	if !report.AllowedReceiptMime(mimeType) {
		return nil, ErrUnsupportedMime
	}

	key, err := s.store.Save(io.LimitReader(file, report.MaxReceiptSize), fileName)
	if err != nil {
		s.logger.Error("Failed to store receipt file",
			zap.Int64("report_id", reportID),
			zap.String("file_name", fileName),
			zap.Error(err))
		return nil, err
	}

	rc := &report.Receipt{
		ReportID:   reportID,
		DetailID:   detailID,
		UploaderID: actor.UserID,
		FileName:   fileName,
		FileSize:   size,
		MimeType:   mimeType,
		StorageKey: key,
		UploadedAt: time.Now(),
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		return s.receipts.Create(tx, rc)
	})
	if err != nil {
		// The DB row failed, so the stored blob is orphaned; best effort cleanup
		if rmErr := s.store.Remove(key); rmErr != nil {
			s.logger.Warn("Failed to remove orphaned receipt file",
				zap.String("storage_key", key),
				zap.Error(rmErr))
		}
		s.logger.Error("Failed to record receipt",
			zap.Int64("report_id", reportID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Receipt uploaded",
		zap.Int64("report_id", reportID),
		zap.Int64("receipt_id", rc.ID),
		zap.String("file_name", fileName),
		zap.Int64("size", size))
	return rc, nil
}

// List returns the report's receipts
func (s *receiptServiceImpl) List(ctx context.Context, reportID int64) ([]*report.Receipt, error) {
	return s.receipts.ListByReport(nil, reportID)
}

// Open returns the stored file content for download
func (s *receiptServiceImpl) Open(ctx context.Context, receiptID int64) (*report.Receipt, io.ReadCloser, error) {
	rc, err := s.receipts.GetByID(receiptID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.store.Open(rc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

// Delete removes a receipt record and its stored file
func (s *receiptServiceImpl) Delete(ctx context.Context, receiptID int64, actor report.Actor) error {
	rc, err := s.receipts.GetByID(receiptID)
	if err != nil {
		return err
	}
	if !rc.DeletableBy(actor) {
		return ErrNotDeletable
	}

	err = s.tx.WithTransaction(func(tx *sql.Tx) error {
		return s.receipts.Delete(tx, receiptID)
	})
	if err != nil {
		s.logger.Error("Failed to delete receipt", zap.Int64("receipt_id", receiptID), zap.Error(err))
		return err
	}

	if err := s.store.Remove(rc.StorageKey); err != nil {
		s.logger.Warn("Failed to remove receipt file",
			zap.String("storage_key", rc.StorageKey),
			zap.Error(err))
	}

	s.logger.Info("Receipt deleted",
		zap.Int64("receipt_id", receiptID),
		zap.String("by", actor.UserID))
	return nil
}
