package service

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/repository"
)

// In-memory fakes for the persistence ports. They ignore the *sql.Tx
// parameter, which the fake TxManager passes as nil.

type fakeTx struct{}

func (fakeTx) WithTransaction(fn func(*sql.Tx) error) error { return fn(nil) }

type fakeReportRepo struct {
	nextID  int64
	reports map[int64]*report.ExpenseReport
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[int64]*report.ExpenseReport)}
}

func (f *fakeReportRepo) Create(_ *sql.Tx, rep *report.ExpenseReport) error {
	f.nextID++
	rep.ID = f.nextID
	stored := *rep
	f.reports[rep.ID] = &stored
	return nil
}

func (f *fakeReportRepo) GetByID(_ *sql.Tx, id int64) (*report.ExpenseReport, error) {
	stored, ok := f.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %d: %w", id, repository.ErrNotFound)
	}
	cp := *stored
	cp.Details = nil
	cp.ApprovalLines = nil
	cp.Receipts = nil
	return &cp, nil
}

func (f *fakeReportRepo) UpdateStatus(_ *sql.Tx, id int64, status string) error {
	stored, ok := f.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = status
	return nil
}

func (f *fakeReportRepo) UpdateHeader(_ *sql.Tx, rep *report.ExpenseReport) error {
	stored, ok := f.reports[rep.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.ReportDate = rep.ReportDate
	stored.Status = rep.Status
	stored.TotalAmount = rep.TotalAmount
	return nil
}

func (f *fakeReportRepo) SetPayment(_ *sql.Tx, id int64, actual decimal.Decimal, reason string, paidAt time.Time) error {
	stored, ok := f.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.ActualPaidAmount = &actual
	stored.AmountDifferenceNote = reason
	stored.PaidAt = &paidAt
	return nil
}

func (f *fakeReportRepo) SetTaxCollected(_ *sql.Tx, id int64, collected bool) error {
	stored, ok := f.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.TaxCollected = collected
	return nil
}

func (f *fakeReportRepo) Delete(_ *sql.Tx, id int64) error {
	delete(f.reports, id)
	return nil
}

func (f *fakeReportRepo) ListByDrafter(drafterID string, limit, offset int) ([]*report.ExpenseReport, error) {
	var out []*report.ExpenseReport
	for _, rep := range f.reports {
		if rep.DrafterID == drafterID {
			cp := *rep
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeDetailRepo struct {
	nextID  int64
	details []*report.ExpenseDetail
}

func (f *fakeDetailRepo) Create(_ *sql.Tx, d *report.ExpenseDetail) error {
	f.nextID++
	d.ID = f.nextID
	cp := *d
	f.details = append(f.details, &cp)
	return nil
}

func (f *fakeDetailRepo) ListByReport(_ *sql.Tx, reportID int64) ([]*report.ExpenseDetail, error) {
	var out []*report.ExpenseDetail
	for _, d := range f.details {
		if d.ReportID == reportID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeDetailRepo) DeleteByReport(_ *sql.Tx, reportID int64) error {
	kept := f.details[:0]
	for _, d := range f.details {
		if d.ReportID != reportID {
			kept = append(kept, d)
		}
	}
	f.details = kept
	return nil
}

func (f *fakeDetailRepo) SetActualPayment(_ *sql.Tx, detailID int64, actual decimal.Decimal, paymentMethod string) error {
	for _, d := range f.details {
		if d.ID == detailID {
			d.ActualPaidAmount = &actual
			d.PaymentMethod = paymentMethod
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeDetailRepo) SetTaxDeductible(_ *sql.Tx, detailID int64, deductible bool, reason string) error {
	for _, d := range f.details {
		if d.ID == detailID {
			d.TaxDeductible = deductible
			d.TaxDeductReason = reason
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeApprovalRepo struct {
	nextID int64
	lines  []*report.ApprovalLine
}

func (f *fakeApprovalRepo) Create(_ *sql.Tx, l *report.ApprovalLine) error {
	f.nextID++
	l.ID = f.nextID
	cp := *l
	f.lines = append(f.lines, &cp)
	return nil
}

func (f *fakeApprovalRepo) ListByReport(_ *sql.Tx, reportID int64) ([]*report.ApprovalLine, error) {
	var out []*report.ApprovalLine
	for _, l := range f.lines {
		if l.ReportID == reportID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeApprovalRepo) Sign(_ *sql.Tx, lineID int64, signature string, at time.Time) error {
	for _, l := range f.lines {
		if l.ID == lineID {
			l.Status = report.StatusApproved
			l.SignatureData = signature
			l.ApprovedAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeApprovalRepo) Reject(_ *sql.Tx, lineID int64, reason string) error {
	for _, l := range f.lines {
		if l.ID == lineID {
			l.Status = report.StatusRejected
			l.RejectionReason = reason
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeApprovalRepo) ResetToWait(_ *sql.Tx, lineID int64) error {
	for _, l := range f.lines {
		if l.ID == lineID {
			l.Status = report.StatusWait
			l.SignatureData = ""
			l.RejectionReason = ""
			l.ApprovedAt = nil
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeApprovalRepo) ResetAllToWait(_ *sql.Tx, reportID int64) error {
	for _, l := range f.lines {
		if l.ReportID == reportID {
			l.Status = report.StatusWait
			l.SignatureData = ""
			l.RejectionReason = ""
			l.ApprovedAt = nil
		}
	}
	return nil
}

func (f *fakeApprovalRepo) DeleteByReport(_ *sql.Tx, reportID int64) error {
	kept := f.lines[:0]
	for _, l := range f.lines {
		if l.ReportID != reportID {
			kept = append(kept, l)
		}
	}
	f.lines = kept
	return nil
}

type fakeReceiptRepo struct {
	nextID   int64
	receipts []*report.Receipt
}

func (f *fakeReceiptRepo) Create(_ *sql.Tx, rc *report.Receipt) error {
	f.nextID++
	rc.ID = f.nextID
	cp := *rc
	f.receipts = append(f.receipts, &cp)
	return nil
}

func (f *fakeReceiptRepo) GetByID(id int64) (*report.Receipt, error) {
	for _, rc := range f.receipts {
		if rc.ID == id {
			cp := *rc
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReceiptRepo) ListByReport(_ *sql.Tx, reportID int64) ([]*report.Receipt, error) {
	var out []*report.Receipt
	for _, rc := range f.receipts {
		if rc.ReportID == reportID {
			cp := *rc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReceiptRepo) Delete(_ *sql.Tx, id int64) error {
	kept := f.receipts[:0]
	for _, rc := range f.receipts {
		if rc.ID != id {
			kept = append(kept, rc)
		}
	}
	f.receipts = kept
	return nil
}

type fakeBackupRepo struct {
	nextID int64
	pool   []*report.BackupApprover
}

func (f *fakeBackupRepo) ListByOwner(ownerID string) ([]*report.BackupApprover, error) {
	var out []*report.BackupApprover
	for _, b := range f.pool {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBackupRepo) Create(b *report.BackupApprover) error {
	f.nextID++
	b.ID = f.nextID
	cp := *b
	f.pool = append(f.pool, &cp)
	return nil
}

type fakeFileStore struct {
	nextKey int
	files   map[string][]byte
	saveErr error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (f *fakeFileStore) Save(r io.Reader, originalName string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.nextKey++
	key := fmt.Sprintf("key-%d", f.nextKey)
	f.files[key] = data
	return key, nil
}

func (f *fakeFileStore) Open(key string) (io.ReadCloser, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("no file for key %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) Remove(key string) error {
	delete(f.files, key)
	return nil
}

// failingReceiptRepo errors on every write, for cleanup-path tests
type failingReceiptRepo struct{}

func (failingReceiptRepo) Create(*sql.Tx, *report.Receipt) error { return errors.New("db down") }
func (failingReceiptRepo) GetByID(int64) (*report.Receipt, error) {
	return nil, repository.ErrNotFound
}
func (failingReceiptRepo) ListByReport(*sql.Tx, int64) ([]*report.Receipt, error) {
	return nil, errors.New("db down")
}
func (failingReceiptRepo) Delete(*sql.Tx, int64) error { return errors.New("db down") }

func zapNop() *zap.Logger { return zap.NewNop() }
