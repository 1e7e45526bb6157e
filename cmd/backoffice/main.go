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
	"github.com/redis/go-redis/v9"

	"github.com/agriflight/backoffice/internal/app"
	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/audit"
	"github.com/agriflight/backoffice/internal/customers"
	"github.com/agriflight/backoffice/internal/dashboard"
	"github.com/agriflight/backoffice/internal/employees"
	"github.com/agriflight/backoffice/internal/platform/db"
	"github.com/agriflight/backoffice/internal/purchasing"
	"github.com/agriflight/backoffice/internal/shared"
	"github.com/agriflight/backoffice/internal/vendors"
	"github.com/agriflight/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	auditLogger := shared.NewAuditLogger(pool, logger)
	sequences := shared.NewSequences(pool)

	dashCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := dashCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("dashboard cache subscription", slog.Any("error", err))
	}
	dashService := dashboard.NewService(dashboard.NewRepository(pool), dashCache)

	vendorService := vendors.NewService(vendors.NewRepository(pool), sequences)
	customerService := customers.NewService(customers.NewRepository(pool))
	employeeService := employees.NewService(employees.NewRepository(pool), sequences)
	purchasingService := purchasing.NewService(purchasing.NewRepository(pool), sequences, auditLogger, dashService)

	approvalService := approvals.NewService(auditLogger)
	approvalService.Register(vendorService)
	approvalService.Register(customerService)
	approvalService.Register(employeeService)
	approvalService.Register(purchasingService)

	auditService := audit.NewService(audit.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		VendorHandler:     vendors.NewHandler(logger, vendorService),
		CustomerHandler:   customers.NewHandler(logger, customerService),
		EmployeeHandler:   employees.NewHandler(logger, employeeService),
		PurchasingHandler: purchasing.NewHandler(logger, purchasingService),
		ApprovalHandler:   approvals.NewHandler(logger, approvalService),
		AuditHandler:      audit.NewHandler(logger, auditService),
		DashboardHandler:  dashboard.NewHandler(logger, dashService),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
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
