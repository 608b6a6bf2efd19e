package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ricemill-erp/ricemill-erp/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerOverdueScan summarises overdue receivables, payables and freight.
	TaskLedgerOverdueScan = "ledger:overdue-scan"
	// TaskInventoryStockWatch checks packaging stock against consignment needs.
	TaskInventoryStockWatch = "inventory:stock-watch"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// OverdueScanPayload selects the date the scan is evaluated on. An empty AsOf
// means the day the task runs.
type OverdueScanPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// StockWatchPayload carries scheduling metadata.
type StockWatchPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewOverdueScanTask constructs an Asynq task for the overdue scan.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// NewStockWatchTask constructs an Asynq task for the stock watch.
func NewStockWatchTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockWatchPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryStockWatch, body, asynq.Queue(QueueDefault)), nil
}
