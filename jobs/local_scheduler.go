package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// LocalScheduler runs cron registrations in-process, without Redis. It serves
// single-machine installs where the embedded store is used.
type LocalScheduler struct {
	cron     *cron.Cron
	handlers map[string]asynq.HandlerFunc
	logger   *slog.Logger
	timeout  time.Duration
}

// NewLocalScheduler registers every cron entry against its handler.
func NewLocalScheduler(cfg WorkerConfig) (*LocalScheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &LocalScheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		handlers: make(map[string]asynq.HandlerFunc, len(cfg.Handlers)),
		logger:   logger,
		timeout:  2 * time.Minute,
	}
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		s.handlers[h.Type] = h.Handler
	}
	for _, entry := range cfg.Cron {
		if entry.Spec == "" || entry.Task == nil {
			continue
		}
		task := entry.Task
		if _, ok := s.handlers[task.Type()]; !ok {
			return nil, fmt.Errorf("local scheduler: no handler for %s", task.Type())
		}
		if _, err := s.cron.AddFunc(entry.Spec, func() { s.dispatch(task) }); err != nil {
			return nil, fmt.Errorf("local scheduler: %s: %w", task.Type(), err)
		}
	}
	return s, nil
}

// Entries reports how many cron entries are registered.
func (s *LocalScheduler) Entries() int {
	return len(s.cron.Entries())
}

// Dispatch runs task immediately through its registered handler.
func (s *LocalScheduler) Dispatch(ctx context.Context, task *asynq.Task) error {
	handler, ok := s.handlers[task.Type()]
	if !ok {
		return fmt.Errorf("local scheduler: no handler for %s", task.Type())
	}
	return handler.ProcessTask(ctx, task)
}

// EnqueueOverdueScan runs an overdue scan in the background.
func (s *LocalScheduler) EnqueueOverdueScan(_ context.Context, payload OverdueScanPayload) (*asynq.TaskInfo, error) {
	task, err := NewOverdueScanTask(payload)
	if err != nil {
		return nil, err
	}
	return s.enqueue(task)
}

// EnqueueStockWatch runs a stock watch in the background.
func (s *LocalScheduler) EnqueueStockWatch(_ context.Context, at time.Time) (*asynq.TaskInfo, error) {
	task, err := NewStockWatchTask(at)
	if err != nil {
		return nil, err
	}
	return s.enqueue(task)
}

func (s *LocalScheduler) enqueue(task *asynq.Task) (*asynq.TaskInfo, error) {
	if _, ok := s.handlers[task.Type()]; !ok {
		return nil, fmt.Errorf("local scheduler: no handler for %s", task.Type())
	}
	go s.dispatch(task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: QueueDefault, Type: task.Type(), State: asynq.TaskStateActive}, nil
}

func (s *LocalScheduler) dispatch(task *asynq.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Dispatch(ctx, task); err != nil && !errors.Is(err, asynq.SkipRetry) {
		s.logger.Error("scheduled job failed", slog.String("job", task.Type()), slog.Any("error", err))
	}
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *LocalScheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}
