package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

func newTestService(mode DepletionMode) (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewService(st, ServiceConfig{Mode: mode}), st
}

func TestServiceReceivePersistsBatches(t *testing.T) {
	svc, st := newTestService(ModeRetain)
	ctx := context.Background()

	_, err := svc.Receive(ctx, MaterialGunny, ReceiptInput{Quantity: qty(500), DateReceived: shared.MustDate("2024-01-02"), SourceTag: "new"})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, MaterialGunny, ReceiptInput{Quantity: qty(200), DateReceived: shared.MustDate("2024-01-03"), SourceTag: "old"})
	require.NoError(t, err)

	stored, err := store.LoadList[Batch](ctx, st, store.GunnyStocks)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	available, err := svc.Available(ctx, MaterialGunny)
	require.NoError(t, err)
	require.True(t, available.Equal(qty(700)))

	stickers, err := svc.Available(ctx, MaterialRexinSticker)
	require.NoError(t, err)
	require.True(t, stickers.IsZero())
}

func TestServiceLegacyModePrunesGunnyOnly(t *testing.T) {
	svc, _ := newTestService(ModeLegacy)
	ctx := context.Background()

	_, err := svc.Receive(ctx, MaterialGunny, ReceiptInput{Quantity: qty(100), DateReceived: shared.MustDate("2024-01-02")})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, MaterialRexinSticker, ReceiptInput{Quantity: qty(100), DateReceived: shared.MustDate("2024-01-02")})
	require.NoError(t, err)

	_, err = svc.Consume(ctx, MaterialGunny, qty(100))
	require.NoError(t, err)
	_, err = svc.Consume(ctx, MaterialRexinSticker, qty(100))
	require.NoError(t, err)

	gunny, err := svc.Batches(ctx, MaterialGunny)
	require.NoError(t, err)
	require.Empty(t, gunny)

	stickers, err := svc.Batches(ctx, MaterialRexinSticker)
	require.NoError(t, err)
	require.Len(t, stickers, 1)
	require.True(t, stickers[0].QuantityUsed.Equal(qty(100)))
}

func TestServiceDispatchConsumesGunnyStock(t *testing.T) {
	svc, st := newTestService(ModeRetain)
	ctx := context.Background()

	_, err := svc.Receive(ctx, MaterialGunny, ReceiptInput{Quantity: qty(300), DateReceived: shared.MustDate("2024-01-02")})
	require.NoError(t, err)

	dispatch, err := svc.Dispatch(ctx, DispatchInput{Quantity: qty(120), Party: "Civil Supplies Godown", DispatchDate: shared.MustDate("2024-02-01")})
	require.NoError(t, err)
	require.NotEmpty(t, dispatch.ID)

	available, err := svc.Available(ctx, MaterialGunny)
	require.NoError(t, err)
	require.True(t, available.Equal(qty(180)))

	dispatches, err := store.LoadList[Dispatch](ctx, st, store.GunnyDispatches)
	require.NoError(t, err)
	require.Len(t, dispatches, 1)

	_, err = svc.Dispatch(ctx, DispatchInput{Quantity: qty(181), Party: "x", DispatchDate: shared.MustDate("2024-02-02")})
	require.ErrorIs(t, err, ErrInsufficientStock)
	dispatches, err = store.LoadList[Dispatch](ctx, st, store.GunnyDispatches)
	require.NoError(t, err)
	require.Len(t, dispatches, 1)

	_, err = svc.Dispatch(ctx, DispatchInput{Quantity: qty(1), DispatchDate: shared.MustDate("2024-02-02")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceReconcileRecordsVariance(t *testing.T) {
	svc, st := newTestService(ModeRetain)
	ctx := context.Background()

	_, err := svc.Receive(ctx, MaterialFRK, ReceiptInput{Quantity: qty(1000), DateReceived: shared.MustDate("2024-01-02")})
	require.NoError(t, err)

	rec, err := svc.Reconcile(ctx, MaterialFRK, ReconcileInput{Physical: qty(985), CountedOn: shared.MustDate("2024-03-31")})
	require.NoError(t, err)
	require.True(t, rec.Expected.Equal(qty(1000)))
	require.True(t, rec.Variance.Equal(qty(-15)))

	available, err := svc.Available(ctx, MaterialFRK)
	require.NoError(t, err)
	require.True(t, available.Equal(qty(1000)), "reconciliation does not adjust the ledger")

	recs, err := store.LoadList[Reconciliation](ctx, st, store.Reconciliations)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestServiceDeleteBatch(t *testing.T) {
	svc, _ := newTestService(ModeRetain)
	ctx := context.Background()

	batch, err := svc.Receive(ctx, MaterialGunny, ReceiptInput{Quantity: qty(10), DateReceived: shared.MustDate("2024-01-02")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteBatch(ctx, MaterialGunny, batch.ID))
	require.ErrorIs(t, svc.DeleteBatch(ctx, MaterialGunny, batch.ID), shared.ErrNotFound)
}

func TestServiceRejectsUnbalancedStoredBatch(t *testing.T) {
	svc, st := newTestService(ModeRetain)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, store.GunnyStocks, []byte(`[{"id":"g1","quantityReceived":1000,"quantityUsed":0,"quantityRemaining":900}]`)))

	_, err := svc.Consume(ctx, MaterialGunny, qty(580))
	require.ErrorIs(t, err, ErrInconsistentBatch)
	require.ErrorIs(t, err, shared.ErrConflict)
}
