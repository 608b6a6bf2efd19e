// Package backup moves every collection in and out of a single JSON document.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

// FormatVersion is written into every export.
const FormatVersion = "1.0"

var (
	// ErrMissingEnvelope indicates a document without version or exportDate.
	ErrMissingEnvelope = fmt.Errorf("backup: version and exportDate are required: %w", shared.ErrValidation)
	// ErrMalformedDocument indicates the payload is not a JSON object.
	ErrMalformedDocument = fmt.Errorf("backup: document must be a JSON object: %w", shared.ErrValidation)
)

// Document is an export: the envelope plus one array per collection.
type Document struct {
	Version     string
	ExportDate  time.Time
	Collections map[string]json.RawMessage
}

// MarshalJSON writes the envelope and collections as flat top-level keys.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Collections)+2)
	for k, v := range d.Collections {
		out[k] = v
	}
	version, err := json.Marshal(d.Version)
	if err != nil {
		return nil, err
	}
	date, err := json.Marshal(d.ExportDate.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	out["version"] = version
	out["exportDate"] = date
	return json.Marshal(out)
}

// ImportResult reports what an import did per collection.
type ImportResult struct {
	Applied []string          `json:"applied"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// PartialImportError is returned when some collections could not be applied.
// Collections applied before or after a failure stay applied.
type PartialImportError struct {
	Result ImportResult
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("backup: %d collection(s) failed to import", len(e.Result.Failed))
}

// Service exports and imports collections.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger, now: time.Now}
}

// Export reads every collection.
func (s *Service) Export(ctx context.Context) (Document, error) {
	doc := Document{
		Version:     FormatVersion,
		ExportDate:  s.now().UTC(),
		Collections: make(map[string]json.RawMessage, len(store.Collections)),
	}
	for _, key := range store.Collections {
		raw, err := s.store.Load(ctx, key)
		if err != nil {
			return Document{}, fmt.Errorf("backup: export %s: %w", key, err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			raw = []byte("[]")
		}
		doc.Collections[key] = json.RawMessage(raw)
	}
	return doc, nil
}

// Import applies each known collection present in data. Absent collections
// are skipped and unknown keys ignored. There is no rollback.
func (s *Service) Import(ctx context.Context, data []byte) (ImportResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return ImportResult{}, ErrMalformedDocument
	}
	if !nonEmptyString(top["version"]) || !nonEmptyString(top["exportDate"]) {
		return ImportResult{}, ErrMissingEnvelope
	}

	result := ImportResult{Applied: []string{}, Skipped: []string{}}
	for _, key := range store.Collections {
		raw, ok := top[key]
		if !ok {
			result.Skipped = append(result.Skipped, key)
			continue
		}
		if err := checkCollection(key, raw); err != nil {
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[key] = err.Error()
			s.logger.Warn("collection rejected", slog.String("collection", key), slog.Any("error", err))
			continue
		}
		if err := s.store.Save(ctx, key, raw); err != nil {
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[key] = err.Error()
			s.logger.Warn("collection import failed", slog.String("collection", key), slog.Any("error", err))
			continue
		}
		result.Applied = append(result.Applied, key)
	}
	s.logger.Info("backup imported",
		slog.Int("applied", len(result.Applied)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("failed", len(result.Failed)))
	if len(result.Failed) > 0 {
		return result, &PartialImportError{Result: result}
	}
	return result, nil
}

// checkCollection decodes the collections whose records feed stock math and
// rejects them when a record is malformed or a batch does not balance.
func checkCollection(key string, raw json.RawMessage) error {
	switch key {
	case store.GunnyStocks, store.RexinStickers, store.FRKStocks:
		var batches []inventory.Batch
		if err := json.Unmarshal(raw, &batches); err != nil {
			return fmt.Errorf("backup: decode %s: %w", key, err)
		}
		return inventory.CheckBatches(batches)
	case store.GunnyDispatches:
		var dispatches []inventory.Dispatch
		if err := json.Unmarshal(raw, &dispatches); err != nil {
			return fmt.Errorf("backup: decode %s: %w", key, err)
		}
	case store.Reconciliations:
		var records []inventory.Reconciliation
		if err := json.Unmarshal(raw, &records); err != nil {
			return fmt.Errorf("backup: decode %s: %w", key, err)
		}
	}
	return nil
}

func nonEmptyString(raw json.RawMessage) bool {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v != ""
}

// IsPartial reports whether err is a PartialImportError.
func IsPartial(err error) bool {
	var partial *PartialImportError
	return errors.As(err, &partial)
}
