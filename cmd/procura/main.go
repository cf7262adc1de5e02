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
	"github.com/joho/godotenv"

	"github.com/procura-hq/procura/internal/app"
	"github.com/procura-hq/procura/internal/invoicing"
	"github.com/procura-hq/procura/internal/masterdata"
	"github.com/procura-hq/procura/internal/platform/cache"
	"github.com/procura-hq/procura/internal/platform/db"
	"github.com/procura-hq/procura/internal/procurement"
	"github.com/procura-hq/procura/internal/reports"
	"github.com/procura-hq/procura/internal/shared"
	"github.com/procura-hq/procura/jobs"
)

func main() {
	_ = godotenv.Load()

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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Redis only backs the report cache; the API degrades without it.
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(logger, reportsRepo, reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	masterRepo := masterdata.NewRepository(pool)
	masterService := masterdata.NewService(masterRepo)
	masterHandler := masterdata.NewHandler(logger, masterService, auditLogger)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(logger, procurementRepo)
	procurementHandler := procurement.NewHandler(logger, procurementService, auditLogger, reportsService)

	invoicingRepo := invoicing.NewRepository(pool)
	invoicingService := invoicing.NewService(logger, invoicingRepo)
	invoicingHandler := invoicing.NewHandler(logger, invoicingService, auditLogger, reportsService)

	var jobsHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobsHandler = jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

		jobsClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Warn("init jobs client", slog.Any("error", err))
		} else {
			// Kick off both scans at boot so derived statuses catch up
			// without waiting for the next cron tick.
			if _, err := jobsClient.EnqueueStockStatusScan(ctx); err != nil {
				logger.Warn("enqueue stock status scan", slog.Any("error", err))
			}
			if _, err := jobsClient.EnqueueInvoiceOverdueScan(ctx); err != nil {
				logger.Warn("enqueue invoice overdue scan", slog.Any("error", err))
			}
			defer func() {
				if err := jobsClient.Close(); err != nil {
					logger.Warn("jobs client close", slog.Any("error", err))
				}
			}()
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		MasterDataHandler:  masterHandler,
		ProcurementHandler: procurementHandler,
		InvoicingHandler:   invoicingHandler,
		ReportsHandler:     reportsHandler,
		JobsHandler:        jobsHandler,
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
