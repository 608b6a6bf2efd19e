package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Ledger holds the receipt batches of one material in stored order.
// It is not safe for concurrent use; Service serialises access.
type Ledger struct {
	material Material
	policy   DepletionPolicy
	batches  []Batch
	newID    func() string
}

// NewLedger builds a ledger over existing batches. The slice is copied.
func NewLedger(material Material, policy DepletionPolicy, batches []Batch) *Ledger {
	cp := make([]Batch, len(batches))
	copy(cp, batches)
	return &Ledger{material: material, policy: policy, batches: cp, newID: shared.NewID}
}

// Material returns the tracked material.
func (l *Ledger) Material() Material { return l.material }

// Policy returns the depletion policy.
func (l *Ledger) Policy() DepletionPolicy { return l.policy }

// Batches returns a copy of the active batches.
func (l *Ledger) Batches() []Batch {
	out := make([]Batch, len(l.batches))
	copy(out, l.batches)
	return out
}

// Receive appends a new lot with nothing used yet. Same-date lots are never merged.
func (l *Ledger) Receive(input ReceiptInput) (Batch, error) {
	if !input.Quantity.IsPositive() {
		return Batch{}, ErrInvalidQuantity
	}
	if input.DateReceived.IsZero() {
		return Batch{}, fmt.Errorf("inventory: date received required: %w", shared.ErrValidation)
	}
	batch := Batch{
		ID:                l.newID(),
		QuantityReceived:  input.Quantity,
		QuantityUsed:      decimal.Zero,
		QuantityRemaining: input.Quantity,
		DateReceived:      input.DateReceived,
		SourceTag:         input.SourceTag,
		Notes:             input.Notes,
	}
	l.batches = append(l.batches, batch)
	return batch, nil
}

// Available sums the remaining quantity over all batches.
func (l *Ledger) Available() decimal.Decimal {
	total := decimal.Zero
	for _, b := range l.batches {
		total = total.Add(b.QuantityRemaining)
	}
	return total
}

// Totals sums received, used and remaining quantities.
func (l *Ledger) Totals() Totals {
	t := Totals{Received: decimal.Zero, Used: decimal.Zero, Remaining: decimal.Zero}
	for _, b := range l.batches {
		t.Received = t.Received.Add(b.QuantityReceived)
		t.Used = t.Used.Add(b.QuantityUsed)
		t.Remaining = t.Remaining.Add(b.QuantityRemaining)
	}
	return t
}

// Check verifies every batch invariant.
func (l *Ledger) Check() error {
	return CheckBatches(l.batches)
}

// Consume draws amount from batches in stored order, first fit. On shortage
// the ledger is left untouched and a *ShortageError is returned.
func (l *Ledger) Consume(amount decimal.Decimal) (Consumption, error) {
	if !amount.IsPositive() {
		return Consumption{}, ErrInvalidQuantity
	}
	available := l.Available()
	if available.LessThan(amount) {
		return Consumption{}, &ShortageError{Material: l.material, Required: amount, Available: available}
	}

	result := Consumption{Material: l.material, Quantity: amount}
	outstanding := amount
	kept := l.batches[:0:0]
	for _, b := range l.batches {
		if outstanding.IsPositive() && b.QuantityRemaining.IsPositive() {
			take := decimal.Min(outstanding, b.QuantityRemaining)
			b.QuantityRemaining = b.QuantityRemaining.Sub(take)
			b.QuantityUsed = b.QuantityUsed.Add(take)
			outstanding = outstanding.Sub(take)
			draw := Draw{BatchID: b.ID, Quantity: take}
			if b.QuantityRemaining.IsZero() && l.policy == DepletionPrune {
				draw.Pruned = true
				result.Draws = append(result.Draws, draw)
				continue
			}
			result.Draws = append(result.Draws, draw)
		}
		kept = append(kept, b)
	}
	l.batches = kept
	result.Remaining = l.Available()
	return result, nil
}

// Remove deletes a batch that nothing was drawn from yet.
func (l *Ledger) Remove(id string) (Batch, error) {
	for i, b := range l.batches {
		if b.ID != id {
			continue
		}
		if !b.QuantityUsed.IsZero() {
			return Batch{}, ErrBatchInUse
		}
		l.batches = append(l.batches[:i:i], l.batches[i+1:]...)
		return b, nil
	}
	return Batch{}, ErrBatchNotFound
}
