package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// persisted records carry plain JSON numbers, as older exports do
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseDecimal parses a required numeric form value. Empty input is rejected
// instead of silently becoming zero.
func ParseDecimal(field, raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, &NumericInputError{Field: field, Value: raw, Reason: "is required"}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return decimal.Zero, &NumericInputError{Field: field, Value: raw}
	}
	return d, nil
}

// ParseOptionalDecimal treats empty input as zero.
func ParseOptionalDecimal(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return ParseDecimal(field, raw)
}

// RequirePositive rejects zero and negative values.
func RequirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &NumericInputError{Field: field, Value: d.String(), Reason: "must be greater than zero"}
	}
	return nil
}

// RequireNonNegative rejects negative values.
func RequireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &NumericInputError{Field: field, Value: d.String(), Reason: "must not be negative"}
	}
	return nil
}

// Ratio divides numer by denom, refusing a zero denominator.
func Ratio(numer, denom decimal.Decimal) (decimal.Decimal, error) {
	if denom.IsZero() {
		return decimal.Zero, ErrUndefinedRatio
	}
	return numer.Div(denom), nil
}
