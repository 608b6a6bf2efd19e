package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/fci"
	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	jobmetrics "github.com/ricemill-erp/ricemill-erp/internal/jobs"
)

// CapacitySource reports how many consignments stock can still cover.
type CapacitySource interface {
	Capacity(ctx context.Context) (int64, error)
}

// StockSource reports the remaining quantity of a material.
type StockSource interface {
	Available(ctx context.Context, material inventory.Material) (decimal.Decimal, error)
}

// StockWatchJob warns when packaging or FRK stock no longer covers the
// configured number of consignments.
type StockWatchJob struct {
	Consignments CapacitySource
	Stock        StockSource
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	// MinConsignments is the low-stock threshold; zero means 1.
	MinConsignments int64
}

// NewStockWatchJob initialises the stock watch handler.
func NewStockWatchJob(consignments CapacitySource, stock StockSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockWatchJob {
	return &StockWatchJob{Consignments: consignments, Stock: stock, Logger: logger, Metrics: metrics}
}

// Handle executes the stock watch.
func (j *StockWatchJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Consignments == nil || j.Stock == nil {
		return errors.New("stock watch: handler not configured")
	}
	var payload StockWatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskInventoryStockWatch)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	logger := j.logger()
	if !payload.ScheduledFor.IsZero() {
		logger = logger.With(slog.String("scheduled_for", payload.ScheduledFor.Format(time.RFC3339)))
	}

	capacity, err := j.Consignments.Capacity(ctx)
	if err != nil {
		resultErr = err
		logger.Error("capacity check failed", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetConsignmentCapacity(capacity)

	frk, err := j.Stock.Available(ctx, inventory.MaterialFRK)
	if err != nil {
		resultErr = err
		logger.Error("frk check failed", slog.Any("error", err))
		return resultErr
	}
	frkCover := frk.Div(decimal.NewFromInt(fci.FRKQuantityKg)).IntPart()

	threshold := j.MinConsignments
	if threshold <= 0 {
		threshold = 1
	}
	if capacity < threshold {
		logger.Warn("packaging stock low",
			slog.Int64("consignments_covered", capacity),
			slog.Int64("threshold", threshold))
	}
	if frkCover < threshold {
		logger.Warn("frk stock low",
			slog.String("frk_kg", frk.String()),
			slog.Int64("consignments_covered", frkCover),
			slog.Int64("threshold", threshold))
	}
	logger.Info("stock watch completed",
		slog.Int64("consignments_covered", capacity),
		slog.Int64("frk_consignments_covered", frkCover))
	return resultErr
}

func (j *StockWatchJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryStockWatch))
	}
	return slog.Default().With(slog.String("job", TaskInventoryStockWatch))
}

func (j *StockWatchJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
