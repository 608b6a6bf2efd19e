package fci

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Issuer applies the fixed-quantity consignment rule to two packaging ledgers.
type Issuer struct {
	gunny    *inventory.Ledger
	stickers *inventory.Ledger
	newID    func() string
}

// NewIssuer pairs a gunny ledger with a rexin sticker ledger.
func NewIssuer(gunny, stickers *inventory.Ledger) (*Issuer, error) {
	if gunny == nil || gunny.Material() != inventory.MaterialGunny {
		return nil, fmt.Errorf("fci: issuer needs a gunny ledger")
	}
	if stickers == nil || stickers.Material() != inventory.MaterialRexinSticker {
		return nil, fmt.Errorf("fci: issuer needs a rexin sticker ledger")
	}
	return &Issuer{gunny: gunny, stickers: stickers, newID: shared.NewID}, nil
}

// Check compares current stock against one consignment's needs. Gunny stock
// is counted across all gunny types.
func (i *Issuer) Check() error {
	shortage := &InsufficientStockError{
		Bags:     Requirement{Required: requiredBags, Available: i.gunny.Available()},
		Stickers: Requirement{Required: requiredStickers, Available: i.stickers.Available()},
	}
	if shortage.Bags.Short() || shortage.Stickers.Short() {
		return shortage
	}
	return nil
}

// Capacity returns how many consignments current stock could cover.
func (i *Issuer) Capacity() int64 {
	bags := i.gunny.Available().Div(requiredBags).Floor().IntPart()
	stickers := i.stickers.Available().Div(requiredStickers).Floor().IntPart()
	if stickers < bags {
		return stickers
	}
	return bags
}

// CreateConsignment re-checks stock, draws 580 bags and 580 stickers and
// returns the new in-transit consignment. On any error neither ledger changes.
func (i *Issuer) CreateConsignment(input ConsignmentInput) (Consignment, error) {
	ack := strings.TrimSpace(input.AckNumber)
	if ack == "" {
		return Consignment{}, ErrAckRequired
	}
	if input.ConsignmentDate.IsZero() {
		return Consignment{}, fmt.Errorf("fci: consignment date required: %w", shared.ErrValidation)
	}
	if err := i.Check(); err != nil {
		return Consignment{}, err
	}
	// both ledgers were checked above, so neither draw can come up short
	if _, err := i.gunny.Consume(requiredBags); err != nil {
		return Consignment{}, err
	}
	if _, err := i.stickers.Consume(requiredStickers); err != nil {
		return Consignment{}, err
	}
	return Consignment{
		ID:              i.newID(),
		AckNumber:       ack,
		RiceQuantity:    decimal.NewFromInt(RiceQuantityQtl),
		FRKQuantity:     decimal.NewFromInt(FRKQuantityKg),
		TotalBags:       RequiredBags,
		GunnyType:       input.GunnyType,
		StickersUsed:    RequiredStickers,
		ConsignmentDate: input.ConsignmentDate,
		Status:          StatusInTransit,
		Notes:           input.Notes,
	}, nil
}
