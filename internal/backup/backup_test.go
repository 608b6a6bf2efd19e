package backup

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

func newTestService(st store.Store) *Service {
	svc := NewService(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestExportWritesEnvelopeAndEveryCollection(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, store.GunnyStocks, []byte(`[{"id":"b1","quantityReceived":500}]`)))

	doc, err := newTestService(st).Export(ctx)
	require.NoError(t, err)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &top))
	require.Len(t, top, len(store.Collections)+2)
	require.JSONEq(t, `"1.0"`, string(top["version"]))
	require.JSONEq(t, `"2024-05-01T09:30:00Z"`, string(top["exportDate"]))
	require.JSONEq(t, `[{"id":"b1","quantityReceived":500}]`, string(top[store.GunnyStocks]))
	require.JSONEq(t, `[]`, string(top[store.GunnyDispatches]))
}

func TestImportRequiresEnvelope(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Import(ctx, []byte(`{"version":"1.0","sales":[]}`))
	require.ErrorIs(t, err, ErrMissingEnvelope)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Import(ctx, []byte(`[1,2]`))
	require.ErrorIs(t, err, ErrMalformedDocument)
}

func TestImportSkipsAbsentCollections(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, store.Expenses, []byte(`[{"id":"keep"}]`)))

	result, err := newTestService(st).Import(ctx, []byte(`{"version":"1.0","exportDate":"2024-05-01","sales":[{"id":"s1"}],"legacyKey":[]}`))
	require.NoError(t, err)
	require.Equal(t, []string{store.Sales}, result.Applied)
	require.Len(t, result.Skipped, len(store.Collections)-1)

	raw, err := st.Load(ctx, store.Sales)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"s1"}]`, string(raw))

	raw, err = st.Load(ctx, store.Expenses)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"keep"}]`, string(raw))
}

func TestImportHasNoRollback(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	result, err := newTestService(st).Import(ctx, []byte(`{"version":"1.0","exportDate":"2024-05-01","customers":[{"id":"c1"}],"sales":{"bad":true},"payments":[{"id":"p1"}]}`))
	require.Error(t, err)
	require.True(t, IsPartial(err))
	require.Contains(t, result.Failed, store.Sales)
	require.ElementsMatch(t, []string{store.Customers, store.Payments}, result.Applied)

	raw, err := st.Load(ctx, store.Payments)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"p1"}]`, string(raw))
}

func TestImportRejectsUnbalancedStock(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, store.GunnyStocks, []byte(`[{"id":"g0","quantityReceived":100,"quantityUsed":0,"quantityRemaining":100}]`)))

	doc := `{"version":"1.0","exportDate":"2024-05-01",
		"gunnyStocks":[{"id":"g1","quantityReceived":1000,"quantityUsed":0,"quantityRemaining":900}],
		"frkStocks":[{"id":"f1","quantityReceived":"abc"}],
		"rexinStickers":[{"id":"r1","quantityReceived":580,"quantityUsed":0,"quantityRemaining":580}]}`
	result, err := newTestService(st).Import(ctx, []byte(doc))
	require.True(t, IsPartial(err))
	require.Equal(t, []string{store.RexinStickers}, result.Applied)
	require.Contains(t, result.Failed, store.GunnyStocks)
	require.Contains(t, result.Failed, store.FRKStocks)

	raw, err := st.Load(ctx, store.GunnyStocks)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"g0","quantityReceived":100,"quantityUsed":0,"quantityRemaining":100}]`, string(raw))

	_, err = inventory.NewService(st, inventory.ServiceConfig{}).Available(ctx, inventory.MaterialFRK)
	require.NoError(t, err)
}

func TestRoundTripThroughHandler(t *testing.T) {
	src := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, src.Save(ctx, store.FCIConsignments, []byte(`[{"id":"c1","ackNumber":"ACK-1"}]`)))
	require.NoError(t, src.Save(ctx, store.RexinStickers, []byte(`[{"id":"r1","quantityReceived":20,"quantityUsed":0,"quantityRemaining":20}]`)))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srcRouter := chi.NewRouter()
	srcRouter.Route("/backup", NewHandler(logger, newTestService(src)).MountRoutes)
	rr := httptest.NewRecorder()
	srcRouter.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/backup/export", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), "ricemill-backup-2024-05-01.json")

	dst := store.NewMemoryStore()
	dstRouter := chi.NewRouter()
	dstRouter.Route("/backup", NewHandler(logger, newTestService(dst)).MountRoutes)
	rr2 := httptest.NewRecorder()
	dstRouter.ServeHTTP(rr2, httptest.NewRequest(http.MethodPost, "/backup/import", strings.NewReader(rr.Body.String())))
	require.Equal(t, http.StatusOK, rr2.Code, rr2.Body.String())

	for _, key := range store.Collections {
		want, err := src.Load(ctx, key)
		require.NoError(t, err)
		got, err := dst.Load(ctx, key)
		require.NoError(t, err)
		require.JSONEq(t, string(want), string(got), key)
	}
}
