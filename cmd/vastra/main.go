package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vastra-erp/vastra-erp/internal/app"
	"github.com/vastra-erp/vastra-erp/internal/auth"
	"github.com/vastra-erp/vastra-erp/internal/billing"
	"github.com/vastra-erp/vastra-erp/internal/catalog"
	"github.com/vastra-erp/vastra-erp/internal/clients"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/platform/cache"
	"github.com/vastra-erp/vastra-erp/internal/platform/db"
	"github.com/vastra-erp/vastra-erp/internal/purchase"
	"github.com/vastra-erp/vastra-erp/internal/shared"
	"github.com/vastra-erp/vastra-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
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
	idempotencyStore := shared.NewIdempotencyStore(pool)

	tokens := auth.NewTokenStore(redisClient, cfg.SessionTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokens)
	authHandler := auth.NewHandler(logger, authService)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	catalogHandler := catalog.NewHandler(logger, catalogService)

	clientsService := clients.NewService(clients.NewRepository(pool))
	clientsHandler := clients.NewHandler(logger, clientsService)

	ledger := inventory.NewLedger(inventory.LedgerConfig{AllowNegativeStock: cfg.AllowNegativeStock})
	valuationCache := inventory.NewValuationCache(redisClient, cfg.ValuationCacheTTL)
	inventoryService := inventory.NewService(inventory.NewRepository(pool), ledger, auditLogger, valuationCache, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	purchaseService := purchase.NewService(purchase.NewRepository(pool), ledger, idempotencyStore, auditLogger, inventoryService, logger)
	purchaseHandler := purchase.NewHandler(logger, purchaseService)

	resolver := catalog.NewMappingResolver()
	billingService := billing.NewService(billing.NewRepository(pool), ledger, resolver, idempotencyStore, auditLogger, inventoryService, logger)
	billingHandler := billing.NewHandler(logger, billingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		ClientsHandler:   clientsHandler,
		InventoryHandler: inventoryHandler,
		PurchaseHandler:  purchaseHandler,
		BillingHandler:   billingHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
