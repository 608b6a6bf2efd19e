package app

import (
	"context"
	"log/slog"

	"github.com/ricemill-erp/ricemill-erp/internal/backup"
	"github.com/ricemill-erp/ricemill-erp/internal/billing"
	"github.com/ricemill-erp/ricemill-erp/internal/fci"
	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/ledger"
	"github.com/ricemill-erp/ricemill-erp/internal/observability"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

// Services bundles the domain services sharing one store.
type Services struct {
	Store     store.Store
	Inventory *inventory.Service
	FCI       *fci.Service
	Ledger    *ledger.Service
	Billing   *billing.Service
	Backup    *backup.Service

	close func() error
}

// OpenServices opens the configured store and builds every service on it.
func OpenServices(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Services, error) {
	st, closer, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}
	svcs := NewServices(st, cfg, logger, metrics)
	svcs.close = closer
	return svcs, nil
}

// NewServices builds services on an already opened store.
func NewServices(st store.Store, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) *Services {
	inv := inventory.NewService(st, inventory.ServiceConfig{Mode: cfg.Depletion(), Logger: logger})
	var recorder fci.MetricsRecorder
	if metrics != nil {
		recorder = metrics
	}
	return &Services{
		Store:     st,
		Inventory: inv,
		FCI:       fci.NewService(st, inv, recorder, logger),
		Ledger:    ledger.NewService(st, ledger.Config{PaymentTermDays: cfg.PaymentTermDays, Logger: logger}),
		Billing:   billing.NewService(st, logger),
		Backup:    backup.NewService(st, logger),
	}
}

// Handlers returns router params with every domain handler set.
func (s *Services) Handlers(logger *slog.Logger) RouterParams {
	return RouterParams{
		InventoryHandler: inventory.NewHandler(logger, s.Inventory),
		FCIHandler:       fci.NewHandler(logger, s.FCI),
		LedgerHandler:    ledger.NewHandler(logger, s.Ledger),
		BillingHandler:   billing.NewHandler(logger, s.Billing),
		BackupHandler:    backup.NewHandler(logger, s.Backup),
	}
}

// Close releases the store.
func (s *Services) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}
