package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/crestline-hq/crestline/internal/app"
	"github.com/crestline-hq/crestline/internal/invoice"
	"github.com/crestline-hq/crestline/internal/masterdata"
	"github.com/crestline-hq/crestline/internal/platform/cache"
	"github.com/crestline-hq/crestline/internal/platform/db"
	"github.com/crestline-hq/crestline/internal/po"
	"github.com/crestline-hq/crestline/jobs"
	"github.com/crestline-hq/crestline/report"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	documents := cache.NewDocumentCache(redisClient, cfg.DocumentCacheTTL)

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	if err := reportClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg unreachable, document pre-rendering will retry",
			slog.String("url", cfg.GotenbergURL), slog.Any("error", err))
	}
	renderer, err := report.NewInvoiceRenderer(reportClient)
	if err != nil {
		logger.Error("init invoice renderer", slog.Any("error", err))
		os.Exit(1)
	}

	masterdataRepo := masterdata.NewRepository(pool)
	poRepo := po.NewRepository(pool)
	invoiceRepo := invoice.NewRepository(pool)
	invoiceService := invoice.NewService(logger, invoiceRepo, masterdataRepo, poRepo, renderer, nil, nil, cfg.FXRate())

	mailer := &jobs.Mailer{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeInvoiceIssued, Handler: jobs.InvoiceIssuedHandler(logger, mailer)},
			{Type: jobs.TaskTypeDocumentPrerender, Handler: jobs.DocumentPrerenderHandler(logger, invoiceService, documents)},
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
