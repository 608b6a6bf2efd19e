package shared

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalRejectsEmpty(t *testing.T) {
	_, err := ParseDecimal("quantityReceived", "  ")
	require.ErrorIs(t, err, ErrInvalidNumericInput)
	require.ErrorIs(t, err, ErrValidation)

	var numErr *NumericInputError
	require.True(t, errors.As(err, &numErr))
	require.Equal(t, "quantityReceived", numErr.Field)
}

func TestParseDecimalRejectsGarbage(t *testing.T) {
	_, err := ParseDecimal("rate", "12a")
	require.ErrorIs(t, err, ErrInvalidNumericInput)
}

func TestParseDecimalAcceptsGroupedDigits(t *testing.T) {
	d, err := ParseDecimal("amount", "1,25,000.50")
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString("125000.50")))
}

func TestParseOptionalDecimal(t *testing.T) {
	d, err := ParseOptionalDecimal("advance", "")
	require.NoError(t, err)
	require.True(t, d.IsZero())
}

func TestRequirePositive(t *testing.T) {
	require.ErrorIs(t, RequirePositive("qty", decimal.Zero), ErrInvalidNumericInput)
	require.NoError(t, RequirePositive("qty", decimal.NewFromInt(1)))
	require.ErrorIs(t, RequireNonNegative("qty", decimal.NewFromInt(-1)), ErrValidation)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1,234.50", FormatAmount(decimal.RequireFromString("1234.5")))
	require.Equal(t, "83,908.00", FormatAmount(decimal.NewFromInt(83908)))
}
