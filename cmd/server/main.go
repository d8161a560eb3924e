package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/config"
	httpserver "github.com/jwkim/expenseflow/internal/interfaces/http"
	"github.com/jwkim/expenseflow/internal/jobs"
	"github.com/jwkim/expenseflow/internal/repository"
	"github.com/jwkim/expenseflow/internal/service"
	"github.com/jwkim/expenseflow/internal/storage"
	"github.com/jwkim/expenseflow/internal/voucher"
	"github.com/jwkim/expenseflow/pkg/database"
	"github.com/jwkim/expenseflow/pkg/utils"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting ExpenseFlow",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Voucher.OutputDir, 0o755); err != nil {
		logger.Fatal("Failed to create voucher output directory", zap.Error(err))
	}

	receiptStore, err := storage.NewLocalReceiptStore(cfg.Storage.ReceiptDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize receipt storage", zap.Error(err))
	}

	// Repositories
	reportRepo := repository.NewReportRepository(db.DB, logger)
	detailRepo := repository.NewDetailRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	receiptRepo := repository.NewReceiptRepository(db.DB, logger)
	backupRepo := repository.NewBackupApproverRepository(db.DB, logger)

	// Services
	reportSvc := service.NewReportService(reportRepo, detailRepo, approvalRepo, receiptRepo, db, logger)
	approvalSvc := service.NewApprovalService(reportSvc, reportRepo, approvalRepo, backupRepo, db, logger)
	paymentSvc := service.NewPaymentService(reportSvc, reportRepo, detailRepo, db, logger)
	receiptSvc := service.NewReceiptService(receiptRepo, receiptStore, db, logger)

	voucherFiller := voucher.NewFiller(cfg.Voucher.CompanyName, cfg.Voucher.OutputDir, logger)

	// Creation-job worker
	jobStore := jobs.NewSQLStore(db.DB, logger)
	worker := jobs.NewWorker(jobStore, reportSvc, cfg.Jobs.QueueSize, logger)
	worker.Start()
	defer worker.Stop()

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, reportSvc, approvalSvc, paymentSvc, receiptSvc, worker, voucherFiller, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}
