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

	"github.com/crestline-hq/crestline/internal/app"
	"github.com/crestline-hq/crestline/internal/invoice"
	"github.com/crestline-hq/crestline/internal/masterdata"
	"github.com/crestline-hq/crestline/internal/observability"
	"github.com/crestline-hq/crestline/internal/platform/cache"
	"github.com/crestline-hq/crestline/internal/platform/db"
	"github.com/crestline-hq/crestline/internal/po"
	"github.com/crestline-hq/crestline/internal/rbac"
	"github.com/crestline-hq/crestline/jobs"
	"github.com/crestline-hq/crestline/report"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var documents *cache.DocumentCache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, document caching disabled", slog.Any("error", err))
	} else {
		documents = cache.NewDocumentCache(redisClient, cfg.DocumentCacheTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Logger: logger}

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService, rbacMiddleware)

	poRepo := po.NewRepository(pool)

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	if err := reportClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg unreachable, pdf downloads will fail until it recovers",
			slog.String("url", cfg.GotenbergURL), slog.Any("error", err))
	}
	renderer, err := report.NewInvoiceRenderer(reportClient)
	if err != nil {
		logger.Error("init invoice renderer", slog.Any("error", err))
		os.Exit(1)
	}

	var notifier invoice.Notifier
	if redisClient != nil {
		jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("jobs client unavailable", slog.Any("error", err))
		} else {
			defer func() {
				if err := jobsClient.Close(); err != nil {
					logger.Warn("jobs client close", slog.Any("error", err))
				}
			}()
			notifier = jobs.NewInvoiceNotifier(jobsClient, func(ctx context.Context, companyID int64) string {
				company, err := masterdataService.GetCompany(ctx, companyID)
				if err != nil {
					return ""
				}
				return company.Name
			})
		}
	}

	invoiceRepo := invoice.NewRepository(pool)
	invoiceService := invoice.NewService(logger, invoiceRepo, masterdataRepo, poRepo, renderer, notifier, metrics, cfg.FXRate())
	invoiceHandler := invoice.NewHandler(logger, invoiceService, documents, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		InvoiceHandler:    invoiceHandler,
		MasterDataHandler: masterdataHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
