package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vastra-erp/vastra-erp/internal/app"
	"github.com/vastra-erp/vastra-erp/internal/billing"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/platform/cache"
	"github.com/vastra-erp/vastra-erp/internal/platform/db"
	"github.com/vastra-erp/vastra-erp/internal/shared"
	"github.com/vastra-erp/vastra-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	ledger := inventory.NewLedger(inventory.LedgerConfig{AllowNegativeStock: cfg.AllowNegativeStock})
	valuationCache := inventory.NewValuationCache(redisClient, cfg.ValuationCacheTTL)
	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, ledger, auditLogger, valuationCache, logger)

	billingRepo := billing.NewRepository(pool)

	snapshotJob := jobs.NewValuationSnapshotJob(inventoryService, inventoryRepo, logger)
	auditJob := jobs.NewOutstandingAuditJob(billingRepo, logger)

	snapshotTask, err := jobs.NewValuationSnapshotTask(time.Now().UTC())
	if err != nil {
		logger.Error("build snapshot task", slog.Any("error", err))
		os.Exit(1)
	}
	auditTask, err := jobs.NewOutstandingAuditTask(time.Now().UTC())
	if err != nil {
		logger.Error("build audit task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Snapshot:  snapshotJob,
		Audit:     auditJob,
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
