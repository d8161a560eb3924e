package http

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/lifecycle"
	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/jobs"
	"github.com/jwkim/expenseflow/internal/repository"
	"github.com/jwkim/expenseflow/internal/service"
	"github.com/jwkim/expenseflow/internal/voucher"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	reportSvc     service.ReportService
	approvalSvc   service.ApprovalService
	paymentSvc    service.PaymentService
	receiptSvc    service.ReceiptService
	worker        *jobs.Worker
	voucherFiller *voucher.Filler
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	reportSvc service.ReportService,
	approvalSvc service.ApprovalService,
	paymentSvc service.PaymentService,
	receiptSvc service.ReceiptService,
	worker *jobs.Worker,
	voucherFiller *voucher.Filler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		reportSvc:     reportSvc,
		approvalSvc:   approvalSvc,
		paymentSvc:    paymentSvc,
		receiptSvc:    receiptSvc,
		worker:        worker,
		voucherFiller: voucherFiller,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

// respondError maps domain and service errors to status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrNotAuthorized),
		errors.Is(err, lifecycle.ErrRejectionPending),
		errors.Is(err, service.ErrNotDeletable):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrApproverPresent),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrGuardFailed):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoCompleteItems),
		errors.Is(err, service.ErrNoApprovers),
		errors.Is(err, service.ErrBlankReason),
		errors.Is(err, service.ErrNoReceipts),
		errors.Is(err, service.ErrReceiptTooLarge),
		errors.Is(err, service.ErrUnsupportedMime),
		errors.Is(err, service.ErrNoBackupCandidate),
		errors.Is(err, service.ErrAmbiguousCandidate),
		errors.Is(err, service.ErrInvalidCandidate),
		errors.Is(err, service.ErrCandidateRegistered):
		fail(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, jobs.ErrQueueFull):
		fail(c, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

// actorFrom builds the acting user from the identity headers the gateway sets
func actorFrom(c *gin.Context) report.Actor {
	role := c.GetHeader("X-User-Role")
	if role == "" {
		role = report.RoleEmployee
	}
	return report.Actor{
		UserID: c.GetHeader("X-User-ID"),
		Name:   c.GetHeader("X-User-Name"),
		Role:   role,
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SubmitExpenses handles POST /api/expenses: the submission is queued and
// materialized asynchronously; the client polls the returned job.
func (h *Handlers) SubmitExpenses(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid submission payload")
		return
	}

	actor := actorFrom(c)
	if req.DrafterID == "" {
		req.DrafterID = actor.UserID
		req.DrafterName = actor.Name
	}

	jobID, err := h.worker.Enqueue(req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, Response{Success: true, Data: gin.H{"job_id": jobID}})
}

// GetJob handles GET /api/jobs/:id
func (h *Handlers) GetJob(c *gin.Context) {
	j, err := h.worker.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, j)
}

// CreateDraft handles POST /api/expenses/drafts
func (h *Handlers) CreateDraft(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid draft payload")
		return
	}

	actor := actorFrom(c)
	if req.DrafterID == "" {
		req.DrafterID = actor.UserID
		req.DrafterName = actor.Name
	}

	rep, err := h.reportSvc.CreateDraft(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: rep})
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	drafterID := c.Query("drafter_id")
	if drafterID == "" {
		drafterID = actorFrom(c).UserID
	}

	reports, err := h.reportSvc.List(c.Request.Context(), drafterID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, reports)
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	rep, err := h.reportSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

// UpdateExpense handles PUT /api/expenses/:id; editing a rejected report
// resubmits it.
func (h *Handlers) UpdateExpense(c *gin.Context) {
	h.update(c, false)
}

// UpdateExpenseDraft handles PUT /api/expenses/:id/draft, saving the edit
// without resubmitting.
func (h *Handlers) UpdateExpenseDraft(c *gin.Context) {
	h.update(c, true)
}

func (h *Handlers) update(c *gin.Context, asDraft bool) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid update payload")
		return
	}

	rep, err := h.reportSvc.Update(c.Request.Context(), id, actorFrom(c), req, asDraft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

// DeleteExpense handles DELETE /api/expenses/:id
func (h *Handlers) DeleteExpense(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.reportSvc.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil)
}

type setLinesRequest struct {
	Lines []service.LineInput `json:"lines"`
}

// SetApprovalLines handles PUT /api/expenses/:id/approval-lines
func (h *Handlers) SetApprovalLines(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req setLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid approval lines payload")
		return
	}

	rep, err := h.approvalSvc.SetLines(c.Request.Context(), id, actorFrom(c), req.Lines)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

type approveRequest struct {
	Signature string `json:"signature"`
}

// Approve handles POST /api/expenses/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid approval payload")
		return
	}

	rep, err := h.approvalSvc.Approve(c.Request.Context(), id, actorFrom(c), req.Signature)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/expenses/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid rejection payload")
		return
	}

	rep, err := h.approvalSvc.Reject(c.Request.Context(), id, actorFrom(c), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

// CancelApproval handles POST /api/expenses/:id/cancel-approval
func (h *Handlers) CancelApproval(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	rep, err := h.approvalSvc.CancelApproval(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

// CancelRejection handles POST /api/expenses/:id/cancel-rejection
func (h *Handlers) CancelRejection(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	rep, err := h.approvalSvc.CancelRejection(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

type addApproverRequest struct {
	ApproverID string `json:"approver_id"`
}

// AddApprover handles POST /api/expenses/:id/approval-lines
func (h *Handlers) AddApprover(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req addApproverRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid approver payload")
			return
		}
	}

	rep, err := h.approvalSvc.AddApprover(c.Request.Context(), id, actorFrom(c), req.ApproverID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

// RegisterBackupApprover handles POST /api/backup-approvers
func (h *Handlers) RegisterBackupApprover(c *gin.Context) {
	var req service.LineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid backup approver payload")
		return
	}

	b, err := h.approvalSvc.RegisterBackupApprover(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: b})
}

type paymentRequest struct {
	Lines  []service.PaymentLine `json:"lines"`
	Reason string                `json:"reason"`
}

// RecordPayment handles POST /api/expenses/:id/payment
func (h *Handlers) RecordPayment(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payment payload")
		return
	}

	rep, err := h.paymentSvc.Reconcile(c.Request.Context(), id, actorFrom(c), req.Lines, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, rep)
}

// GenerateVoucher handles GET /api/expenses/:id/voucher, streaming the xlsx
func (h *Handlers) GenerateVoucher(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	rep, err := h.reportSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	path, err := h.voucherFiller.Fill(rep)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="voucher-%d.xlsx"`, id))
	c.File(path)
}

// UploadReceipt handles POST /api/expenses/:id/receipts
func (h *Handlers) UploadReceipt(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "missing receipt file")
		return
	}

	var detailID *int64
	if raw := c.PostForm("detail_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid detail_id")
			return
		}
		detailID = &parsed
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	rc, err := h.receiptSvc.Upload(c.Request.Context(), id, detailID, actorFrom(c),
		f, fileHeader.Filename, mimeType, fileHeader.Size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: rc})
}

// ListReceipts handles GET /api/expenses/:id/receipts
func (h *Handlers) ListReceipts(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	receipts, err := h.receiptSvc.List(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, receipts)
}

// DownloadReceipt handles GET /api/receipts/:id/download
func (h *Handlers) DownloadReceipt(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	rc, f, err := h.receiptSvc.Open(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="`+rc.FileName+`"`)
	c.DataFromReader(http.StatusOK, rc.FileSize, rc.MimeType, f, nil)
}

// DeleteReceipt handles DELETE /api/receipts/:id
func (h *Handlers) DeleteReceipt(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.receiptSvc.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil)
}

type taxRequest struct {
	Deductible bool   `json:"deductible"`
	Reason     string `json:"reason"`
}

// SetTaxDeductible handles PUT /api/details/:id/tax
func (h *Handlers) SetTaxDeductible(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req taxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid tax payload")
		return
	}

	if err := h.reportSvc.SetTaxDeductible(c.Request.Context(), id, actorFrom(c), req.Deductible, req.Reason); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil)
}

type taxCollectedRequest struct {
	Collected bool `json:"collected"`
}

// MarkTaxCollected handles PUT /api/expenses/:id/tax-collected
func (h *Handlers) MarkTaxCollected(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req taxCollectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid tax collection payload")
		return
	}

	if err := h.reportSvc.MarkTaxCollected(c.Request.Context(), id, actorFrom(c), req.Collected); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil)
}
