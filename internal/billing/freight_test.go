package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

func TestComputeFreightAdvancePaid(t *testing.T) {
	a, err := ComputeFreight(false, dec("1500"), []Deduction{{Reason: "shortage", Amount: dec("2000")}}, dec("50000"))
	require.NoError(t, err)
	require.True(t, a.QuantityMT.Equal(dec("58")))
	require.True(t, a.GrossFreightAmount.Equal(dec("87000")))
	require.True(t, a.NetFreightAmount.Equal(dec("85000")))
	require.True(t, a.BalanceAmount.Equal(dec("35000")))
	require.Equal(t, FreightAdvancePaid, a.PaymentStatus)
}

func TestComputeFreightStatuses(t *testing.T) {
	tests := []struct {
		name    string
		bran    bool
		advance string
		gross   string
		want    FreightStatus
	}{
		{name: "rice pending", advance: "0", gross: "87000", want: FreightPending},
		{name: "bran fully paid", bran: true, advance: "43500", gross: "43500", want: FreightFullyPaid},
		{name: "overpaid", advance: "90000", gross: "87000", want: FreightFullyPaid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := ComputeFreight(tc.bran, dec("1500"), nil, dec(tc.advance))
			require.NoError(t, err)
			require.True(t, a.GrossFreightAmount.Equal(dec(tc.gross)))
			require.Equal(t, tc.want, a.PaymentStatus)
		})
	}
}

func TestComputeFreightValidation(t *testing.T) {
	_, err := ComputeFreight(false, decimal.Zero, nil, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrInvalidNumericInput)

	_, err = ComputeFreight(false, dec("1500"), []Deduction{{Amount: dec("-5")}}, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrInvalidNumericInput)
}
