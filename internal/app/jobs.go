package app

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ricemill-erp/ricemill-erp/internal/observability"
	"github.com/ricemill-erp/ricemill-erp/jobs"
)

// JobsConfig wires the scheduled jobs to the services. The same configuration
// drives the asynq worker and the in-process scheduler.
func JobsConfig(cfg *Config, svcs *Services, logger *slog.Logger, metrics *observability.Metrics) (jobs.WorkerConfig, error) {
	overdue := jobs.NewOverdueScanJob(svcs.Ledger, logger, metrics.Jobs())
	watch := jobs.NewStockWatchJob(svcs.FCI, svcs.Inventory, logger, metrics.Jobs())
	watch.MinConsignments = cfg.StockWatchThreshold

	overdueTask, err := jobs.NewOverdueScanTask(jobs.OverdueScanPayload{})
	if err != nil {
		return jobs.WorkerConfig{}, err
	}
	watchTask, err := jobs.NewStockWatchTask(time.Time{})
	if err != nil {
		return jobs.WorkerConfig{}, err
	}
	return jobs.WorkerConfig{
		RedisOpts: cfg.RedisOpts(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerOverdueScan, Handler: overdue.Handle},
			{Type: jobs.TaskInventoryStockWatch, Handler: watch.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueScanCron, Task: overdueTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.StockWatchCron, Task: watchTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	}, nil
}
