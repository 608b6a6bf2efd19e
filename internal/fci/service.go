package fci

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

// MetricsRecorder receives consignment outcomes.
type MetricsRecorder interface {
	ConsignmentIssued()
	StockShortfall(material string)
}

// Service persists consignments and the stock they draw.
type Service struct {
	store     store.Store
	inventory *inventory.Service
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewService builds Service. metrics may be nil.
func NewService(st store.Store, inv *inventory.Service, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, inventory: inv, metrics: metrics, logger: logger}
}

func (s *Service) issuer(ctx context.Context) (*Issuer, *inventory.Ledger, *inventory.Ledger, error) {
	gunny, err := s.inventory.LoadLedger(ctx, inventory.MaterialGunny)
	if err != nil {
		return nil, nil, nil, err
	}
	stickers, err := s.inventory.LoadLedger(ctx, inventory.MaterialRexinSticker)
	if err != nil {
		return nil, nil, nil, err
	}
	issuer, err := NewIssuer(gunny, stickers)
	if err != nil {
		return nil, nil, nil, err
	}
	return issuer, gunny, stickers, nil
}

// CreateConsignment issues a consignment against current stock. Stock is read
// under the inventory lock right before it is drawn.
func (s *Service) CreateConsignment(ctx context.Context, input ConsignmentInput) (Consignment, error) {
	defer s.inventory.Lock()()

	consignments, err := store.LoadList[Consignment](ctx, s.store, store.FCIConsignments)
	if err != nil {
		return Consignment{}, err
	}
	for _, c := range consignments {
		if normaliseAck(c.AckNumber) == normaliseAck(input.AckNumber) && normaliseAck(c.AckNumber) != "" {
			return Consignment{}, fmt.Errorf("%w: %s", ErrDuplicateAck, c.AckNumber)
		}
	}

	issuer, gunny, stickers, err := s.issuer(ctx)
	if err != nil {
		return Consignment{}, err
	}
	gunnyBefore := inventory.NewLedger(gunny.Material(), gunny.Policy(), gunny.Batches())
	stickersBefore := inventory.NewLedger(stickers.Material(), stickers.Policy(), stickers.Batches())
	consignment, err := issuer.CreateConsignment(input)
	if err != nil {
		var shortage *InsufficientStockError
		if errors.As(err, &shortage) {
			s.recordShortage(shortage)
		}
		return Consignment{}, err
	}

	// the store has no transaction across collections; a failed write puts
	// back the ledgers already saved
	if err := s.inventory.SaveLedger(ctx, gunny); err != nil {
		return Consignment{}, err
	}
	if err := s.inventory.SaveLedger(ctx, stickers); err != nil {
		s.restore(ctx, consignment, gunnyBefore)
		return Consignment{}, err
	}
	if err := store.SaveList(ctx, s.store, store.FCIConsignments, append(consignments, consignment)); err != nil {
		s.restore(ctx, consignment, gunnyBefore, stickersBefore)
		return Consignment{}, err
	}
	if s.metrics != nil {
		s.metrics.ConsignmentIssued()
	}
	s.logger.Info("consignment issued",
		slog.String("ack_number", consignment.AckNumber),
		slog.String("consignment_id", consignment.ID),
		slog.String("gunny_remaining", gunny.Available().String()),
		slog.String("stickers_remaining", stickers.Available().String()))
	return consignment, nil
}

func (s *Service) restore(ctx context.Context, consignment Consignment, ledgers ...*inventory.Ledger) {
	for _, l := range ledgers {
		if err := s.inventory.SaveLedger(ctx, l); err != nil {
			s.logger.Error("stock restore failed",
				slog.String("ack_number", consignment.AckNumber),
				slog.String("material", string(l.Material())),
				slog.String("available_before", l.Available().String()),
				slog.Any("error", err))
			continue
		}
		s.logger.Warn("stock restored after failed consignment",
			slog.String("ack_number", consignment.AckNumber),
			slog.String("material", string(l.Material())))
	}
}

func (s *Service) recordShortage(shortage *InsufficientStockError) {
	s.logger.Warn("consignment rejected for stock",
		slog.String("bags_available", shortage.Bags.Available.String()),
		slog.String("stickers_available", shortage.Stickers.Available.String()))
	if s.metrics == nil {
		return
	}
	if shortage.Bags.Short() {
		s.metrics.StockShortfall(string(inventory.MaterialGunny))
	}
	if shortage.Stickers.Short() {
		s.metrics.StockShortfall(string(inventory.MaterialRexinSticker))
	}
}

// List returns all consignments in stored order.
func (s *Service) List(ctx context.Context) ([]Consignment, error) {
	return store.LoadList[Consignment](ctx, s.store, store.FCIConsignments)
}

// Capacity reports how many further consignments current stock supports.
func (s *Service) Capacity(ctx context.Context) (int64, error) {
	issuer, _, _, err := s.issuer(ctx)
	if err != nil {
		return 0, err
	}
	return issuer.Capacity(), nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*Consignment) error) (Consignment, error) {
	defer s.inventory.Lock()()
	consignments, err := store.LoadList[Consignment](ctx, s.store, store.FCIConsignments)
	if err != nil {
		return Consignment{}, err
	}
	for i := range consignments {
		if consignments[i].ID != id {
			continue
		}
		if err := fn(&consignments[i]); err != nil {
			return Consignment{}, err
		}
		if err := store.SaveList(ctx, s.store, store.FCIConsignments, consignments); err != nil {
			return Consignment{}, err
		}
		return consignments[i], nil
	}
	return Consignment{}, ErrConsignmentNotFound
}

// UpdateStatus changes a consignment's status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Consignment, error) {
	return s.mutate(ctx, id, func(c *Consignment) error {
		return c.Transition(status)
	})
}

// RecordQC stores the depot's weighment and quality figures. Nil fields are left as they were.
func (s *Service) RecordQC(ctx context.Context, id string, input QCInput) (Consignment, error) {
	for _, f := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{"fciWeight", input.Weight},
		{"fciMoisture", input.Moisture},
		{"fciUnloadingHamali", input.UnloadingHamali},
		{"fciPassingFee", input.PassingFee},
	} {
		if f.value == nil {
			continue
		}
		if err := shared.RequireNonNegative(f.name, *f.value); err != nil {
			return Consignment{}, err
		}
	}
	return s.mutate(ctx, id, func(c *Consignment) error {
		if input.Weight != nil {
			c.FCIWeight = input.Weight
		}
		if input.Moisture != nil {
			c.FCIMoisture = input.Moisture
		}
		if input.UnloadingHamali != nil {
			c.FCIUnloadingHamali = input.UnloadingHamali
		}
		if input.PassingFee != nil {
			c.FCIPassingFee = input.PassingFee
		}
		return nil
	})
}

// Delete removes a consignment. Drawn stock is not returned to the ledgers.
func (s *Service) Delete(ctx context.Context, id string) error {
	defer s.inventory.Lock()()
	consignments, err := store.LoadList[Consignment](ctx, s.store, store.FCIConsignments)
	if err != nil {
		return err
	}
	for i, c := range consignments {
		if c.ID == id {
			rest := append(consignments[:i:i], consignments[i+1:]...)
			return store.SaveList(ctx, s.store, store.FCIConsignments, rest)
		}
	}
	return ErrConsignmentNotFound
}

// CreateProduction records a milling run under a unique ACK number.
func (s *Service) CreateProduction(ctx context.Context, p RiceProduction) (RiceProduction, error) {
	p.AckNumber = strings.TrimSpace(p.AckNumber)
	if p.AckNumber == "" {
		return RiceProduction{}, ErrAckRequired
	}
	if p.ProductionDate.IsZero() {
		return RiceProduction{}, fmt.Errorf("fci: production date required: %w", shared.ErrValidation)
	}
	if err := shared.RequireNonNegative("paddyUsedQtl", p.PaddyUsedQtl); err != nil {
		return RiceProduction{}, err
	}
	if err := shared.RequireNonNegative("riceProducedQtl", p.RiceProducedQtl); err != nil {
		return RiceProduction{}, err
	}
	if err := shared.RequireNonNegative("brokenQtl", p.BrokenQtl); err != nil {
		return RiceProduction{}, err
	}
	if err := shared.RequireNonNegative("branQtl", p.BranQtl); err != nil {
		return RiceProduction{}, err
	}
	defer s.inventory.Lock()()
	productions, err := store.LoadList[RiceProduction](ctx, s.store, store.RiceProductions)
	if err != nil {
		return RiceProduction{}, err
	}
	idx, _ := NewAckIndex(productions)
	if _, ok := idx.Lookup(p.AckNumber); ok {
		return RiceProduction{}, fmt.Errorf("%w: %s", ErrDuplicateProduction, p.AckNumber)
	}
	p.ID = shared.NewID()
	if err := store.SaveList(ctx, s.store, store.RiceProductions, append(productions, p)); err != nil {
		return RiceProduction{}, err
	}
	return p, nil
}

// Productions lists recorded milling runs.
func (s *Service) Productions(ctx context.Context) ([]RiceProduction, error) {
	return store.LoadList[RiceProduction](ctx, s.store, store.RiceProductions)
}

// Dangling lists consignments whose ACK number matches no production record.
func (s *Service) Dangling(ctx context.Context) ([]Consignment, error) {
	productions, err := s.Productions(ctx)
	if err != nil {
		return nil, err
	}
	consignments, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	idx, dupes := NewAckIndex(productions)
	if len(dupes) > 0 {
		s.logger.Warn("duplicate ack numbers in productions", slog.Any("ack_numbers", dupes))
	}
	return idx.Dangling(consignments), nil
}
