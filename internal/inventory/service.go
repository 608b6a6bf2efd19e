package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

// Service persists material ledgers through a store.
type Service struct {
	store  store.Store
	mode   DepletionMode
	logger *slog.Logger
	mu     sync.Mutex
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Mode   DepletionMode
	Logger *slog.Logger
}

// NewService builds Service.
func NewService(st store.Store, cfg ServiceConfig) *Service {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeRetain
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, mode: mode, logger: logger}
}

// Mode returns the configured depletion mode.
func (s *Service) Mode() DepletionMode { return s.mode }

// LoadLedger reads a material's batches into a Ledger. Callers that mutate
// the ledger must hold the lock returned by Lock.
func (s *Service) LoadLedger(ctx context.Context, material Material) (*Ledger, error) {
	key := material.Collection()
	if key == "" {
		return nil, fmt.Errorf("inventory: unknown material %q: %w", material, shared.ErrValidation)
	}
	batches, err := store.LoadList[Batch](ctx, s.store, key)
	if err != nil {
		return nil, err
	}
	return NewLedger(material, PolicyFor(s.mode, material), batches), nil
}

// SaveLedger writes a ledger back to its collection.
func (s *Service) SaveLedger(ctx context.Context, ledger *Ledger) error {
	if err := ledger.Check(); err != nil {
		return err
	}
	return store.SaveList(ctx, s.store, ledger.Material().Collection(), ledger.Batches())
}

// Lock serialises load-mutate-save sequences across services sharing the store.
func (s *Service) Lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// Receive records a new lot for material.
func (s *Service) Receive(ctx context.Context, material Material, input ReceiptInput) (Batch, error) {
	defer s.Lock()()
	ledger, err := s.LoadLedger(ctx, material)
	if err != nil {
		return Batch{}, err
	}
	batch, err := ledger.Receive(input)
	if err != nil {
		return Batch{}, err
	}
	if err := s.SaveLedger(ctx, ledger); err != nil {
		return Batch{}, err
	}
	s.logger.Info("stock received",
		slog.String("material", string(material)),
		slog.String("batch_id", batch.ID),
		slog.String("quantity", batch.QuantityReceived.String()))
	return batch, nil
}

// Available returns the remaining quantity of material.
func (s *Service) Available(ctx context.Context, material Material) (decimal.Decimal, error) {
	ledger, err := s.LoadLedger(ctx, material)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.Available(), nil
}

// Batches lists the active batches of material.
func (s *Service) Batches(ctx context.Context, material Material) ([]Batch, error) {
	ledger, err := s.LoadLedger(ctx, material)
	if err != nil {
		return nil, err
	}
	return ledger.Batches(), nil
}

// Summary returns received/used/remaining totals of material.
func (s *Service) Summary(ctx context.Context, material Material) (Totals, error) {
	ledger, err := s.LoadLedger(ctx, material)
	if err != nil {
		return Totals{}, err
	}
	return ledger.Totals(), nil
}

// DeleteBatch removes an untouched batch.
func (s *Service) DeleteBatch(ctx context.Context, material Material, id string) error {
	defer s.Lock()()
	ledger, err := s.LoadLedger(ctx, material)
	if err != nil {
		return err
	}
	if _, err := ledger.Remove(id); err != nil {
		return err
	}
	return s.SaveLedger(ctx, ledger)
}

// Consume draws amount of material outside the consignment workflow, such as
// FRK blended into a rice lot.
func (s *Service) Consume(ctx context.Context, material Material, amount decimal.Decimal) (Consumption, error) {
	defer s.Lock()()
	ledger, err := s.LoadLedger(ctx, material)
	if err != nil {
		return Consumption{}, err
	}
	consumption, err := ledger.Consume(amount)
	if err != nil {
		return Consumption{}, err
	}
	if err := s.SaveLedger(ctx, ledger); err != nil {
		return Consumption{}, err
	}
	s.logger.Info("stock consumed",
		slog.String("material", string(material)),
		slog.String("quantity", amount.String()),
		slog.Int("batches", len(consumption.Draws)),
		slog.String("remaining", consumption.Remaining.String()))
	return consumption, nil
}

// Dispatch sends gunny bags out of the mill and records the dispatch.
func (s *Service) Dispatch(ctx context.Context, input DispatchInput) (Dispatch, error) {
	if !input.Quantity.IsPositive() {
		return Dispatch{}, ErrInvalidQuantity
	}
	if input.Party == "" {
		return Dispatch{}, fmt.Errorf("inventory: dispatch party required: %w", shared.ErrValidation)
	}
	defer s.Lock()()
	ledger, err := s.LoadLedger(ctx, MaterialGunny)
	if err != nil {
		return Dispatch{}, err
	}
	dispatches, err := store.LoadList[Dispatch](ctx, s.store, store.GunnyDispatches)
	if err != nil {
		return Dispatch{}, err
	}
	if _, err := ledger.Consume(input.Quantity); err != nil {
		return Dispatch{}, err
	}
	dispatch := Dispatch{
		ID:           shared.NewID(),
		Quantity:     input.Quantity,
		Party:        input.Party,
		DispatchDate: input.DispatchDate,
		Notes:        input.Notes,
	}
	if err := s.SaveLedger(ctx, ledger); err != nil {
		return Dispatch{}, err
	}
	if err := store.SaveList(ctx, s.store, store.GunnyDispatches, append(dispatches, dispatch)); err != nil {
		return Dispatch{}, err
	}
	return dispatch, nil
}

// Reconcile records a physical count against the ledger balance. The ledger
// itself is not adjusted; the variance is kept for review.
func (s *Service) Reconcile(ctx context.Context, material Material, input ReconcileInput) (Reconciliation, error) {
	if err := shared.RequireNonNegative("physical", input.Physical); err != nil {
		return Reconciliation{}, err
	}
	defer s.Lock()()
	ledger, err := s.LoadLedger(ctx, material)
	if err != nil {
		return Reconciliation{}, err
	}
	records, err := store.LoadList[Reconciliation](ctx, s.store, store.Reconciliations)
	if err != nil {
		return Reconciliation{}, err
	}
	expected := ledger.Available()
	rec := Reconciliation{
		ID:        shared.NewID(),
		Material:  material,
		Expected:  expected,
		Physical:  input.Physical,
		Variance:  input.Physical.Sub(expected),
		CountedOn: input.CountedOn,
		Notes:     input.Notes,
	}
	if err := store.SaveList(ctx, s.store, store.Reconciliations, append(records, rec)); err != nil {
		return Reconciliation{}, err
	}
	if !rec.Variance.IsZero() {
		s.logger.Warn("stock count variance",
			slog.String("material", string(material)),
			slog.String("expected", expected.String()),
			slog.String("physical", input.Physical.String()))
	}
	return rec, nil
}
