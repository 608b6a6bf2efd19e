package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ricemill-erp/ricemill-erp/internal/app"
	"github.com/ricemill-erp/ricemill-erp/internal/observability"
	"github.com/ricemill-erp/ricemill-erp/jobs"
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
	metrics := observability.NewMetrics()

	svcs, err := app.OpenServices(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("open store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	jobsConfig, err := app.JobsConfig(cfg, svcs, logger, metrics)
	if err != nil {
		logger.Error("build jobs", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobsConfig)
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
