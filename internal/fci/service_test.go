package fci

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

type countingMetrics struct {
	issued    int
	shortfall map[string]int
}

func (m *countingMetrics) ConsignmentIssued() { m.issued++ }

func (m *countingMetrics) StockShortfall(material string) {
	if m.shortfall == nil {
		m.shortfall = map[string]int{}
	}
	m.shortfall[material]++
}

type fixture struct {
	st      *store.MemoryStore
	inv     *inventory.Service
	svc     *Service
	metrics *countingMetrics
}

func newFixture(t *testing.T, mode inventory.DepletionMode, gunny []int64, stickers []int64) fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	inv := inventory.NewService(st, inventory.ServiceConfig{Mode: mode})
	for _, lot := range gunny {
		_, err := inv.Receive(ctx, inventory.MaterialGunny, inventory.ReceiptInput{Quantity: qty(lot), DateReceived: shared.MustDate("2024-02-01")})
		require.NoError(t, err)
	}
	for _, lot := range stickers {
		_, err := inv.Receive(ctx, inventory.MaterialRexinSticker, inventory.ReceiptInput{Quantity: qty(lot), DateReceived: shared.MustDate("2024-02-01")})
		require.NoError(t, err)
	}
	metrics := &countingMetrics{}
	return fixture{st: st, inv: inv, svc: NewService(st, inv, metrics, nil), metrics: metrics}
}

func TestServiceCreateConsignmentPersistsEverything(t *testing.T) {
	tests := []struct {
		name         string
		mode         inventory.DepletionMode
		gunnyBatches int
	}{
		{name: "retain", mode: inventory.ModeRetain, gunnyBatches: 2},
		{name: "legacy", mode: inventory.ModeLegacy, gunnyBatches: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.mode, []int64{500, 200}, []int64{600})
			ctx := context.Background()

			c, err := f.svc.CreateConsignment(ctx, consignmentInput("ACK-100"))
			require.NoError(t, err)
			require.Equal(t, StatusInTransit, c.Status)

			gunny, err := store.LoadList[inventory.Batch](ctx, f.st, store.GunnyStocks)
			require.NoError(t, err)
			require.Len(t, gunny, tc.gunnyBatches)
			require.True(t, gunny[len(gunny)-1].QuantityRemaining.Equal(qty(120)))

			stickers, err := store.LoadList[inventory.Batch](ctx, f.st, store.RexinStickers)
			require.NoError(t, err)
			require.Len(t, stickers, 1)
			require.True(t, stickers[0].QuantityRemaining.Equal(qty(20)))
			require.True(t, stickers[0].QuantityUsed.Equal(qty(580)))

			list, err := f.svc.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.Equal(t, "ACK-100", list[0].AckNumber)
			require.Equal(t, 1, f.metrics.issued)
		})
	}
}

func TestServiceShortageIsAtomic(t *testing.T) {
	f := newFixture(t, inventory.ModeRetain, []int64{579}, []int64{600})
	ctx := context.Background()

	_, err := f.svc.CreateConsignment(ctx, consignmentInput("ACK-1"))
	var shortage *InsufficientStockError
	require.True(t, errors.As(err, &shortage))

	gunny, err := f.inv.Available(ctx, inventory.MaterialGunny)
	require.NoError(t, err)
	require.True(t, gunny.Equal(qty(579)))
	stickers, err := f.inv.Available(ctx, inventory.MaterialRexinSticker)
	require.NoError(t, err)
	require.True(t, stickers.Equal(qty(600)))

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Equal(t, 1, f.metrics.shortfall[string(inventory.MaterialGunny)])
	require.Zero(t, f.metrics.shortfall[string(inventory.MaterialRexinSticker)])
}

type failingSaveStore struct {
	*store.MemoryStore
	failKey string
}

func (s *failingSaveStore) Save(ctx context.Context, key string, data []byte) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, key, data)
}

func TestServiceRestoresStockWhenConsignmentSaveFails(t *testing.T) {
	ctx := context.Background()
	st := &failingSaveStore{MemoryStore: store.NewMemoryStore(), failKey: store.FCIConsignments}
	inv := inventory.NewService(st, inventory.ServiceConfig{Mode: inventory.ModeLegacy})
	_, err := inv.Receive(ctx, inventory.MaterialGunny, inventory.ReceiptInput{Quantity: qty(580), DateReceived: shared.MustDate("2024-02-01")})
	require.NoError(t, err)
	_, err = inv.Receive(ctx, inventory.MaterialRexinSticker, inventory.ReceiptInput{Quantity: qty(600), DateReceived: shared.MustDate("2024-02-01")})
	require.NoError(t, err)
	svc := NewService(st, inv, nil, nil)

	_, err = svc.CreateConsignment(ctx, consignmentInput("ACK-1"))
	require.ErrorContains(t, err, "disk full")

	gunny, err := inv.Batches(ctx, inventory.MaterialGunny)
	require.NoError(t, err)
	require.Len(t, gunny, 1)
	require.True(t, gunny[0].QuantityRemaining.Equal(qty(580)))
	stickers, err := inv.Available(ctx, inventory.MaterialRexinSticker)
	require.NoError(t, err)
	require.True(t, stickers.Equal(qty(600)))
}

func TestServiceRejectsDuplicateAck(t *testing.T) {
	f := newFixture(t, inventory.ModeRetain, []int64{2000}, []int64{2000})
	ctx := context.Background()

	_, err := f.svc.CreateConsignment(ctx, consignmentInput("ACK-7"))
	require.NoError(t, err)
	_, err = f.svc.CreateConsignment(ctx, consignmentInput(" ack-7 "))
	require.ErrorIs(t, err, ErrDuplicateAck)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	gunny, err := f.inv.Available(ctx, inventory.MaterialGunny)
	require.NoError(t, err)
	require.True(t, gunny.Equal(qty(1420)))
}

func TestServiceStatusQCAndDelete(t *testing.T) {
	f := newFixture(t, inventory.ModeRetain, []int64{600}, []int64{600})
	ctx := context.Background()

	c, err := f.svc.CreateConsignment(ctx, consignmentInput("ACK-5"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, c.ID, StatusRejected)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, updated.Status)
	_, err = f.svc.UpdateStatus(ctx, c.ID, StatusQCPassed)
	require.ErrorIs(t, err, ErrTerminalStatus)

	weight := qty(289)
	moisture := qty(14)
	updated, err = f.svc.RecordQC(ctx, c.ID, QCInput{Weight: &weight, Moisture: &moisture})
	require.NoError(t, err)
	require.True(t, updated.FCIWeight.Equal(weight))
	require.Nil(t, updated.FCIPassingFee)

	negative := qty(-1)
	_, err = f.svc.RecordQC(ctx, c.ID, QCInput{PassingFee: &negative})
	require.ErrorIs(t, err, shared.ErrInvalidNumericInput)

	_, err = f.svc.UpdateStatus(ctx, "missing", StatusQCPassed)
	require.ErrorIs(t, err, ErrConsignmentNotFound)

	require.NoError(t, f.svc.Delete(ctx, c.ID))
	require.ErrorIs(t, f.svc.Delete(ctx, c.ID), shared.ErrNotFound)

	// deleting does not hand the stock back
	gunny, err := f.inv.Available(ctx, inventory.MaterialGunny)
	require.NoError(t, err)
	require.True(t, gunny.Equal(qty(20)))
}

func TestServiceProductionsAndDangling(t *testing.T) {
	f := newFixture(t, inventory.ModeRetain, []int64{1200}, []int64{1200})
	ctx := context.Background()

	_, err := f.svc.CreateProduction(ctx, RiceProduction{AckNumber: "ACK-1", ProductionDate: shared.MustDate("2024-02-20"), PaddyUsedQtl: qty(430), RiceProducedQtl: qty(290)})
	require.NoError(t, err)
	_, err = f.svc.CreateProduction(ctx, RiceProduction{AckNumber: "ack-1", ProductionDate: shared.MustDate("2024-02-21"), PaddyUsedQtl: qty(430), RiceProducedQtl: qty(290)})
	require.ErrorIs(t, err, ErrDuplicateProduction)

	_, err = f.svc.CreateConsignment(ctx, consignmentInput("ACK-1"))
	require.NoError(t, err)
	orphan, err := f.svc.CreateConsignment(ctx, consignmentInput("ACK-2"))
	require.NoError(t, err)

	dangling, err := f.svc.Dangling(ctx)
	require.NoError(t, err)
	require.Len(t, dangling, 1)
	require.Equal(t, orphan.ID, dangling[0].ID)

	capacity, err := f.svc.Capacity(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, capacity)
}
