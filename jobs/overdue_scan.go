package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/ricemill-erp/ricemill-erp/internal/jobs"
	"github.com/ricemill-erp/ricemill-erp/internal/ledger"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// OutstandingSource computes the outstanding summary for a date.
type OutstandingSource interface {
	Outstanding(ctx context.Context, asOf shared.Date) (ledger.Outstanding, error)
}

// OverdueScanJob logs and publishes overdue balances per item kind.
type OverdueScanJob struct {
	Ledger  OutstandingSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(source OutstandingSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Ledger:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type overdueTally struct {
	count   int
	balance decimal.Decimal
}

// Handle executes the overdue scan.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := shared.NewDate(j.now())
	if payload.AsOf != "" {
		parsed, err := shared.ParseDate("as_of", payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		asOf = parsed
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskLedgerOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("as_of", asOf.String()))
	logger.Info("starting overdue scan")

	outstanding, err := j.Ledger.Outstanding(ctx, asOf)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	// known kinds are always published so cleared balances drop to zero
	tallies := make(map[ledger.ItemKind]*overdueTally, len(ledger.ItemKinds))
	for _, kind := range ledger.ItemKinds {
		tallies[kind] = &overdueTally{}
	}
	for _, item := range outstanding.Overdue {
		tally, ok := tallies[item.Kind]
		if !ok {
			tally = &overdueTally{}
			tallies[item.Kind] = tally
		}
		tally.count++
		tally.balance = tally.balance.Add(item.Balance)
		if item.DaysOverdue > 90 {
			logger.Warn("long overdue balance",
				slog.String("kind", string(item.Kind)),
				slog.String("id", item.ID),
				slog.String("party", item.Party),
				slog.Int("days_overdue", item.DaysOverdue),
				slog.String("balance", shared.FormatAmount(item.Balance)),
			)
		}
	}
	for kind, tally := range tallies {
		j.metrics().SetOverdue(string(kind), tally.count, tally.balance.InexactFloat64())
	}

	logger.Info("completed overdue scan",
		slog.Int("overdue", len(outstanding.Overdue)),
		slog.String("receivables", shared.FormatAmount(outstanding.Receivables)),
		slog.String("payables", shared.FormatAmount(outstanding.Payables)),
		slog.String("freight_dues", shared.FormatAmount(outstanding.FreightDues)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskLedgerOverdueScan))
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverdueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
