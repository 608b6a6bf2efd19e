// Package fci issues rice consignments to the Food Corporation of India and
// keeps the packaging stock they consume in step.
package fci

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Fixed per-consignment quantities.
const (
	RequiredBags     = 580
	RequiredStickers = 580
	RiceQuantityQtl  = 290
	FRKQuantityKg    = 290
)

var (
	requiredBags     = decimal.NewFromInt(RequiredBags)
	requiredStickers = decimal.NewFromInt(RequiredStickers)
)

// Status is the advisory lifecycle state of a consignment.
type Status string

const (
	StatusInTransit   Status = "in-transit"
	StatusDumpingDone Status = "dumping-done"
	StatusQCPassed    Status = "qc-passed"
	StatusDispatched  Status = "dispatched"
	StatusRejected    Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInTransit, StatusDumpingDone, StatusQCPassed, StatusDispatched, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s Status) Terminal() bool {
	return s == StatusDispatched || s == StatusRejected
}

// Consignment is one FCI delivery identified by its ACK number.
type Consignment struct {
	ID                 string           `json:"id"`
	AckNumber          string           `json:"ackNumber"`
	RiceQuantity       decimal.Decimal  `json:"riceQuantity"`
	FRKQuantity        decimal.Decimal  `json:"frkQuantity"`
	TotalBags          int              `json:"totalBags"`
	GunnyType          string           `json:"gunnyType"`
	StickersUsed       int              `json:"stickersUsed"`
	ConsignmentDate    shared.Date      `json:"consignmentDate"`
	Status             Status           `json:"status"`
	Notes              string           `json:"notes,omitempty"`
	FCIWeight          *decimal.Decimal `json:"fciWeight,omitempty"`
	FCIMoisture        *decimal.Decimal `json:"fciMoisture,omitempty"`
	FCIUnloadingHamali *decimal.Decimal `json:"fciUnloadingHamali,omitempty"`
	FCIPassingFee      *decimal.Decimal `json:"fciPassingFee,omitempty"`
}

// Transition moves the consignment to a new status. Any order is accepted
// except leaving a terminal status.
func (c *Consignment) Transition(to Status) error {
	if !to.Valid() {
		return fmt.Errorf("fci: unknown status %q: %w", to, shared.ErrValidation)
	}
	if c.Status.Terminal() && c.Status != to {
		return fmt.Errorf("fci: consignment %s is %s: %w", c.AckNumber, c.Status, ErrTerminalStatus)
	}
	c.Status = to
	return nil
}

// ConsignmentInput is what an operator supplies for a new consignment.
type ConsignmentInput struct {
	AckNumber       string
	GunnyType       string
	ConsignmentDate shared.Date
	Notes           string
}

// QCInput carries the figures reported back by the FCI depot.
type QCInput struct {
	Weight          *decimal.Decimal
	Moisture        *decimal.Decimal
	UnloadingHamali *decimal.Decimal
	PassingFee      *decimal.Decimal
}

// RiceProduction is a milling run; consignments refer to it by ACK number.
type RiceProduction struct {
	ID              string          `json:"id"`
	AckNumber       string          `json:"ackNumber"`
	ProductionDate  shared.Date     `json:"productionDate"`
	PaddyUsedQtl    decimal.Decimal `json:"paddyUsedQtl"`
	RiceProducedQtl decimal.Decimal `json:"riceProducedQtl"`
	BrokenQtl       decimal.Decimal `json:"brokenQtl"`
	BranQtl         decimal.Decimal `json:"branQtl"`
	Notes           string          `json:"notes,omitempty"`
}

// OutturnPercent is rice produced per 100 of paddy used.
func (p RiceProduction) OutturnPercent() (decimal.Decimal, error) {
	ratio, err := shared.Ratio(p.RiceProducedQtl, p.PaddyUsedQtl)
	if err != nil {
		return decimal.Zero, err
	}
	return ratio.Mul(decimal.NewFromInt(100)), nil
}

// Requirement pairs a required quantity with what is on hand.
type Requirement struct {
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
}

// Short reports whether the requirement is not met.
func (r Requirement) Short() bool {
	return r.Available.LessThan(r.Required)
}

// InsufficientStockError is returned when either packaging ledger cannot
// cover a consignment. Nothing is mutated when it is returned.
type InsufficientStockError struct {
	Bags     Requirement `json:"bags"`
	Stickers Requirement `json:"stickers"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("fci: insufficient stock: gunny bags %s/%s, rexin stickers %s/%s",
		e.Bags.Available, e.Bags.Required, e.Stickers.Available, e.Stickers.Required)
}

func (e *InsufficientStockError) Unwrap() error {
	return inventory.ErrInsufficientStock
}

var (
	// ErrDuplicateAck indicates the ACK number is already consigned.
	ErrDuplicateAck = fmt.Errorf("fci: ack number already consigned: %w", shared.ErrDuplicate)
	// ErrDuplicateProduction indicates a production record already holds the ACK number.
	ErrDuplicateProduction = fmt.Errorf("fci: production already recorded for ack number: %w", shared.ErrDuplicate)
	// ErrConsignmentNotFound indicates an unknown consignment id.
	ErrConsignmentNotFound = fmt.Errorf("fci: consignment not found: %w", shared.ErrNotFound)
	// ErrTerminalStatus indicates a dispatched or rejected consignment.
	ErrTerminalStatus = fmt.Errorf("fci: status is terminal: %w", shared.ErrConflict)
	// ErrAckRequired indicates a blank ACK number.
	ErrAckRequired = fmt.Errorf("fci: ack number required: %w", shared.ErrValidation)
)
