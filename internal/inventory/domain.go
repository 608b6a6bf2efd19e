package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

// Material enumerates lot-tracked consumables.
type Material string

const (
	// MaterialGunny is empty jute bags used to pack consignment rice.
	MaterialGunny Material = "gunny"
	// MaterialRexinSticker is the per-bag label.
	MaterialRexinSticker Material = "rexin-sticker"
	// MaterialFRK is fortified rice kernel premix, tracked in kg.
	MaterialFRK Material = "frk"
)

// Materials lists every supported material.
var Materials = []Material{MaterialGunny, MaterialRexinSticker, MaterialFRK}

// ParseMaterial validates a material name coming from a request path.
func ParseMaterial(raw string) (Material, error) {
	for _, m := range Materials {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("inventory: unknown material %q: %w", raw, shared.ErrValidation)
}

// Collection returns the store key holding the material's batches.
func (m Material) Collection() string {
	switch m {
	case MaterialGunny:
		return store.GunnyStocks
	case MaterialRexinSticker:
		return store.RexinStickers
	case MaterialFRK:
		return store.FRKStocks
	default:
		return ""
	}
}

// DepletionPolicy decides what happens to a batch once it is exhausted.
type DepletionPolicy int

const (
	// DepletionRetain keeps exhausted batches with zero remaining.
	DepletionRetain DepletionPolicy = iota
	// DepletionPrune drops exhausted batches from the active set.
	DepletionPrune
)

func (p DepletionPolicy) String() string {
	if p == DepletionPrune {
		return "prune"
	}
	return "retain"
}

// DepletionMode selects policies for all materials at once.
type DepletionMode string

const (
	// ModeRetain never prunes any ledger.
	ModeRetain DepletionMode = "retain"
	// ModeLegacy prunes gunny batches and retains sticker and FRK batches.
	ModeLegacy DepletionMode = "legacy"
)

// ParseDepletionMode validates a configured mode; empty means retain.
func ParseDepletionMode(raw string) (DepletionMode, error) {
	switch DepletionMode(raw) {
	case "", ModeRetain:
		return ModeRetain, nil
	case ModeLegacy:
		return ModeLegacy, nil
	default:
		return "", fmt.Errorf("inventory: unknown depletion mode %q", raw)
	}
}

// PolicyFor returns the depletion policy a material follows under mode.
func PolicyFor(mode DepletionMode, material Material) DepletionPolicy {
	if mode == ModeLegacy && material == MaterialGunny {
		return DepletionPrune
	}
	return DepletionRetain
}

// Batch is one receipt lot. QuantityUsed + QuantityRemaining always equals
// QuantityReceived and QuantityRemaining never goes below zero.
type Batch struct {
	ID                string          `json:"id"`
	QuantityReceived  decimal.Decimal `json:"quantityReceived"`
	QuantityUsed      decimal.Decimal `json:"quantityUsed"`
	QuantityRemaining decimal.Decimal `json:"quantityRemaining"`
	DateReceived      shared.Date     `json:"dateReceived"`
	SourceTag         string          `json:"sourceTag,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// Consistent reports whether the batch satisfies its quantity invariant.
func (b Batch) Consistent() bool {
	return b.QuantityUsed.Add(b.QuantityRemaining).Equal(b.QuantityReceived) && !b.QuantityRemaining.IsNegative()
}

// ReceiptInput describes a new lot.
type ReceiptInput struct {
	Quantity     decimal.Decimal
	DateReceived shared.Date
	SourceTag    string
	Notes        string
}

// Draw records how much one batch contributed to a consumption.
type Draw struct {
	BatchID  string          `json:"batchId"`
	Quantity decimal.Decimal `json:"quantity"`
	Pruned   bool            `json:"pruned,omitempty"`
}

// Consumption is the result of a successful Consume.
type Consumption struct {
	Material  Material        `json:"material"`
	Quantity  decimal.Decimal `json:"quantity"`
	Draws     []Draw          `json:"draws"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Totals sums a ledger's active batches.
type Totals struct {
	Received  decimal.Decimal `json:"received"`
	Used      decimal.Decimal `json:"used"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Dispatch records gunny bags sent out of the mill.
type Dispatch struct {
	ID           string          `json:"id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Party        string          `json:"party"`
	DispatchDate shared.Date     `json:"dispatchDate"`
	Notes        string          `json:"notes,omitempty"`
}

// DispatchInput describes a gunny dispatch request.
type DispatchInput struct {
	Quantity     decimal.Decimal
	Party        string
	DispatchDate shared.Date
	Notes        string
}

// Reconciliation compares a physical count with the ledger balance.
type Reconciliation struct {
	ID        string          `json:"id"`
	Material  Material        `json:"material"`
	Expected  decimal.Decimal `json:"expected"`
	Physical  decimal.Decimal `json:"physical"`
	Variance  decimal.Decimal `json:"variance"`
	CountedOn shared.Date     `json:"countedOn"`
	Notes     string          `json:"notes,omitempty"`
}

// ReconcileInput describes a physical stock count.
type ReconcileInput struct {
	Physical  decimal.Decimal
	CountedOn shared.Date
	Notes     string
}

// ErrInsufficientStock is wrapped by ShortageError.
var ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", shared.ErrConflict)

// ErrInvalidQuantity indicates a zero or negative quantity.
var ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be greater than zero: %w", shared.ErrValidation)

// ErrBatchNotFound indicates an unknown batch id.
var ErrBatchNotFound = fmt.Errorf("inventory: batch not found: %w", shared.ErrNotFound)

// ErrBatchInUse prevents deleting a batch that stock was already drawn from.
var ErrBatchInUse = fmt.Errorf("inventory: batch already consumed from: %w", shared.ErrConflict)

// ErrInconsistentBatch indicates a stored batch whose used and remaining
// quantities do not add up to what was received.
var ErrInconsistentBatch = fmt.Errorf("inventory: inconsistent batch: %w", shared.ErrConflict)

// CheckBatches verifies the quantity invariant of every batch.
func CheckBatches(batches []Batch) error {
	for _, b := range batches {
		if !b.Consistent() {
			return fmt.Errorf("%w: %s received %s used %s remaining %s",
				ErrInconsistentBatch, b.ID, b.QuantityReceived, b.QuantityUsed, b.QuantityRemaining)
		}
	}
	return nil
}

// ShortageError reports a rejected consumption.
type ShortageError struct {
	Material  Material
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("inventory: insufficient %s stock: required %s, available %s", e.Material, e.Required, e.Available)
}

func (e *ShortageError) Unwrap() error {
	return ErrInsufficientStock
}

// IsShortage reports whether err carries a ShortageError.
func IsShortage(err error) (*ShortageError, bool) {
	var shortage *ShortageError
	if errors.As(err, &shortage) {
		return shortage, true
	}
	return nil, false
}
