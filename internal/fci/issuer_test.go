package fci

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ledgerWith(t *testing.T, material inventory.Material, policy inventory.DepletionPolicy, lots ...int64) *inventory.Ledger {
	t.Helper()
	l := inventory.NewLedger(material, policy, nil)
	for _, lot := range lots {
		_, err := l.Receive(inventory.ReceiptInput{Quantity: qty(lot), DateReceived: shared.MustDate("2024-02-01")})
		require.NoError(t, err)
	}
	return l
}

func consignmentInput(ack string) ConsignmentInput {
	return ConsignmentInput{AckNumber: ack, GunnyType: "new", ConsignmentDate: shared.MustDate("2024-03-01")}
}

func TestIssuerDrawsFirstFitFromBothLedgers(t *testing.T) {
	gunny := ledgerWith(t, inventory.MaterialGunny, inventory.DepletionRetain, 500, 200)
	stickers := ledgerWith(t, inventory.MaterialRexinSticker, inventory.DepletionRetain, 600)
	issuer, err := NewIssuer(gunny, stickers)
	require.NoError(t, err)

	c, err := issuer.CreateConsignment(consignmentInput("ACK-001"))
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, c.Status)
	require.Equal(t, RequiredBags, c.TotalBags)
	require.Equal(t, RequiredStickers, c.StickersUsed)
	require.True(t, c.RiceQuantity.Equal(qty(290)))
	require.True(t, c.FRKQuantity.Equal(qty(290)))

	batches := gunny.Batches()
	require.Len(t, batches, 2)
	require.True(t, batches[0].QuantityRemaining.IsZero())
	require.True(t, batches[0].QuantityUsed.Equal(qty(500)))
	require.True(t, batches[1].QuantityRemaining.Equal(qty(120)))
	require.True(t, batches[1].QuantityUsed.Equal(qty(80)))
	require.True(t, gunny.Available().Equal(qty(120)))

	sticker := stickers.Batches()
	require.Len(t, sticker, 1)
	require.True(t, sticker[0].QuantityRemaining.Equal(qty(20)))
	require.True(t, sticker[0].QuantityUsed.Equal(qty(580)))
}

func TestIssuerPrunesExhaustedGunnyUnderPrunePolicy(t *testing.T) {
	gunny := ledgerWith(t, inventory.MaterialGunny, inventory.DepletionPrune, 500, 200)
	stickers := ledgerWith(t, inventory.MaterialRexinSticker, inventory.DepletionRetain, 600)
	issuer, err := NewIssuer(gunny, stickers)
	require.NoError(t, err)

	_, err = issuer.CreateConsignment(consignmentInput("ACK-001"))
	require.NoError(t, err)

	batches := gunny.Batches()
	require.Len(t, batches, 1)
	require.True(t, batches[0].QuantityRemaining.Equal(qty(120)))
	require.Len(t, stickers.Batches(), 1)
}

func TestIssuerShortageLeavesLedgersUntouched(t *testing.T) {
	gunny := ledgerWith(t, inventory.MaterialGunny, inventory.DepletionRetain, 579)
	stickers := ledgerWith(t, inventory.MaterialRexinSticker, inventory.DepletionRetain, 1000)
	before := gunny.Batches()
	issuer, err := NewIssuer(gunny, stickers)
	require.NoError(t, err)

	_, err = issuer.CreateConsignment(consignmentInput("ACK-002"))
	require.Error(t, err)
	require.True(t, errors.Is(err, inventory.ErrInsufficientStock))
	require.True(t, errors.Is(err, shared.ErrConflict))

	var shortage *InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.True(t, shortage.Bags.Short())
	require.False(t, shortage.Stickers.Short())
	require.True(t, shortage.Bags.Available.Equal(qty(579)))
	require.True(t, shortage.Bags.Required.Equal(qty(580)))

	require.Equal(t, before, gunny.Batches())
	require.True(t, stickers.Available().Equal(qty(1000)))
}

func TestIssuerStickerShortage(t *testing.T) {
	gunny := ledgerWith(t, inventory.MaterialGunny, inventory.DepletionRetain, 1000)
	stickers := ledgerWith(t, inventory.MaterialRexinSticker, inventory.DepletionRetain, 300, 200)
	issuer, err := NewIssuer(gunny, stickers)
	require.NoError(t, err)

	_, err = issuer.CreateConsignment(consignmentInput("ACK-003"))
	var shortage *InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.False(t, shortage.Bags.Short())
	require.True(t, shortage.Stickers.Short())
	require.True(t, gunny.Available().Equal(qty(1000)))
	require.True(t, stickers.Available().Equal(qty(500)))
}

func TestIssuerValidatesInput(t *testing.T) {
	gunny := ledgerWith(t, inventory.MaterialGunny, inventory.DepletionRetain, 1000)
	stickers := ledgerWith(t, inventory.MaterialRexinSticker, inventory.DepletionRetain, 1000)
	issuer, err := NewIssuer(gunny, stickers)
	require.NoError(t, err)

	_, err = issuer.CreateConsignment(ConsignmentInput{AckNumber: "  ", ConsignmentDate: shared.MustDate("2024-03-01")})
	require.ErrorIs(t, err, ErrAckRequired)

	_, err = issuer.CreateConsignment(ConsignmentInput{AckNumber: "ACK-9"})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.True(t, gunny.Available().Equal(qty(1000)))
}

func TestNewIssuerRejectsSwappedLedgers(t *testing.T) {
	gunny := ledgerWith(t, inventory.MaterialGunny, inventory.DepletionRetain)
	stickers := ledgerWith(t, inventory.MaterialRexinSticker, inventory.DepletionRetain)
	_, err := NewIssuer(stickers, gunny)
	require.Error(t, err)
}

func TestIssuerCapacity(t *testing.T) {
	gunny := ledgerWith(t, inventory.MaterialGunny, inventory.DepletionRetain, 1500, 300)
	stickers := ledgerWith(t, inventory.MaterialRexinSticker, inventory.DepletionRetain, 1200)
	issuer, err := NewIssuer(gunny, stickers)
	require.NoError(t, err)
	require.EqualValues(t, 2, issuer.Capacity())

	_, err = issuer.CreateConsignment(consignmentInput("A"))
	require.NoError(t, err)
	_, err = issuer.CreateConsignment(consignmentInput("B"))
	require.NoError(t, err)
	require.EqualValues(t, 0, issuer.Capacity())
}

func TestConsignmentTransition(t *testing.T) {
	c := Consignment{AckNumber: "A", Status: StatusInTransit}
	require.NoError(t, c.Transition(StatusQCPassed))
	require.NoError(t, c.Transition(StatusDumpingDone))
	require.NoError(t, c.Transition(StatusDispatched))
	require.ErrorIs(t, c.Transition(StatusInTransit), ErrTerminalStatus)
	require.NoError(t, c.Transition(StatusDispatched))
	require.ErrorIs(t, c.Transition("lost"), shared.ErrValidation)
}

func TestAckIndexDangling(t *testing.T) {
	idx, dupes := NewAckIndex([]RiceProduction{
		{ID: "p1", AckNumber: "ack-1"},
		{ID: "p2", AckNumber: "ACK-2"},
		{ID: "p3", AckNumber: " Ack-1 "},
	})
	require.Equal(t, []string{" Ack-1 "}, dupes)

	p, ok := idx.Lookup("ACK-1")
	require.True(t, ok)
	require.Equal(t, "p1", p.ID)

	dangling := idx.Dangling([]Consignment{{ID: "c1", AckNumber: "ACK-1"}, {ID: "c2", AckNumber: "ACK-7"}})
	require.Len(t, dangling, 1)
	require.Equal(t, "c2", dangling[0].ID)
}

func TestOutturnPercent(t *testing.T) {
	p := RiceProduction{PaddyUsedQtl: qty(100), RiceProducedQtl: qty(67)}
	pct, err := p.OutturnPercent()
	require.NoError(t, err)
	require.True(t, pct.Equal(qty(67)))

	_, err = RiceProduction{}.OutturnPercent()
	require.ErrorIs(t, err, shared.ErrUndefinedRatio)
}
