package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/ricemill-erp/ricemill-erp/cmd/ricemill/cli"
	"github.com/ricemill-erp/ricemill-erp/internal/app"
	"github.com/ricemill-erp/ricemill-erp/internal/observability"
	"github.com/ricemill-erp/ricemill-erp/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

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

	group, groupCtx := errgroup.WithContext(ctx)

	var jobHandler *jobs.Handler
	switch cfg.JobsRunner {
	case app.JobsRunnerAsynq:
		client, err := jobs.NewClient(jobsConfig.RedisOpts)
		if err != nil {
			logger.Error("init jobs client", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()
		inspector := asynq.NewInspector(jobsConfig.RedisOpts)
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, client, logger)
	default:
		scheduler, err := jobs.NewLocalScheduler(jobsConfig)
		if err != nil {
			logger.Error("init scheduler", slog.Any("error", err))
			os.Exit(1)
		}
		jobHandler = jobs.NewHandler(nil, scheduler, logger)
		group.Go(func() error {
			logger.Info("starting local scheduler", slog.Int("entries", scheduler.Entries()))
			return scheduler.Run(groupCtx)
		})
	}

	params := svcs.Handlers(logger)
	params.Logger = logger
	params.Config = cfg
	params.JobHandler = jobHandler
	params.Metrics = metrics
	router := app.NewRouter(params)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.StoreDriver),
			slog.String("depletion", string(cfg.Depletion())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisOpts())
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	if len(args) == 2 && args[0] == "trigger" {
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
		return nil
	}
	if len(args) == 1 && args[0] == "stats" {
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	}
	return errors.New("usage: ricemill jobs trigger <job> | ricemill jobs stats")
}
