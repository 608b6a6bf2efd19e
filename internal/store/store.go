// Package store persists named record collections as JSON arrays.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection keys. They double as the top-level keys of a backup document.
const (
	ByProducts         = "byProducts"
	Customers          = "customers"
	Products           = "products"
	Sales              = "sales"
	Payments           = "payments"
	Expenses           = "expenses"
	HamaliWork         = "hamaliWork"
	LabourWages        = "labourWages"
	SupervisorSalaries = "supervisorSalaries"
	ElectricityBills   = "electricityBills"
	FCIConsignments    = "fciConsignments"
	LorryFreights      = "lorryFreights"
	RiceProductions    = "riceProductions"
	GunnyStocks        = "gunnyStocks"
	FRKStocks          = "frkStocks"
	RexinStickers      = "rexinStickers"
	Reconciliations    = "reconciliations"
	GunnyDispatches    = "gunnyDispatches"
)

// Collections lists every known collection key in backup order.
var Collections = []string{
	ByProducts, Customers, Products, Sales, Payments, Expenses,
	HamaliWork, LabourWages, SupervisorSalaries, ElectricityBills,
	FCIConsignments, LorryFreights, RiceProductions, GunnyStocks,
	FRKStocks, RexinStickers, Reconciliations, GunnyDispatches,
}

// ErrUnknownCollection is returned for keys outside Collections.
var ErrUnknownCollection = errors.New("store: unknown collection")

// ErrNotArray is returned when a payload is not a JSON array.
var ErrNotArray = errors.New("store: collection payload must be a JSON array")

// Store is the key-value persistence collaborator. Load returns a JSON array,
// "[]" when nothing was saved yet. Save replaces the whole collection.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// IsCollection reports whether key is a known collection.
func IsCollection(key string) bool {
	for _, c := range Collections {
		if c == key {
			return true
		}
	}
	return false
}

func checkKey(key string) error {
	if !IsCollection(key) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, key)
	}
	return nil
}

func checkArray(data []byte) error {
	var probe []json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	return nil
}

// LoadList decodes a collection into a typed slice.
func LoadList[T any](ctx context.Context, s Store, key string) ([]T, error) {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", key, err)
	}
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return items, nil
}

// SaveList encodes a typed slice and replaces the collection.
func SaveList[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := s.Save(ctx, key, raw); err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	return nil
}
