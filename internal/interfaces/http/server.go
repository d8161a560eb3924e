// Package http is the HTTP adapter: it translates requests into service
// calls and service errors into status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/jobs"
	"github.com/jwkim/expenseflow/internal/service"
	"github.com/jwkim/expenseflow/internal/voucher"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates a new HTTP server wired to the given services
func NewServer(
	config ServerConfig,
	reportSvc service.ReportService,
	approvalSvc service.ApprovalService,
	paymentSvc service.PaymentService,
	receiptSvc service.ReceiptService,
	worker *jobs.Worker,
	voucherFiller *voucher.Filler,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes(NewHandlers(reportSvc, approvalSvc, paymentSvc, receiptSvc, worker, voucherFiller, logger))
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) setupRoutes(h *Handlers) {
	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/expenses", h.SubmitExpenses)
		api.POST("/expenses/drafts", h.CreateDraft)
		api.GET("/expenses", h.ListExpenses)
		api.GET("/expenses/:id", h.GetExpense)
		api.PUT("/expenses/:id", h.UpdateExpense)
		api.PUT("/expenses/:id/draft", h.UpdateExpenseDraft)
		api.DELETE("/expenses/:id", h.DeleteExpense)

		api.GET("/jobs/:id", h.GetJob)

		api.PUT("/expenses/:id/approval-lines", h.SetApprovalLines)
		api.POST("/expenses/:id/approval-lines", h.AddApprover)
		api.POST("/expenses/:id/approve", h.Approve)
		api.POST("/expenses/:id/reject", h.Reject)
		api.POST("/expenses/:id/cancel-approval", h.CancelApproval)
		api.POST("/expenses/:id/cancel-rejection", h.CancelRejection)
		api.POST("/backup-approvers", h.RegisterBackupApprover)

		api.POST("/expenses/:id/payment", h.RecordPayment)
		api.GET("/expenses/:id/voucher", h.GenerateVoucher)

		api.POST("/expenses/:id/receipts", h.UploadReceipt)
		api.GET("/expenses/:id/receipts", h.ListReceipts)
		api.GET("/receipts/:id/download", h.DownloadReceipt)
		api.DELETE("/receipts/:id", h.DeleteReceipt)

		api.PUT("/details/:id/tax", h.SetTaxDeductible)
		api.PUT("/expenses/:id/tax-collected", h.MarkTaxCollected)
	}
}

// Start runs the server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
