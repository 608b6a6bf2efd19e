package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a currency amount with grouping and two decimals.
// Rounding happens here only; calculations keep full precision.
func FormatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return amountPrinter.Sprint(number.Decimal(f, number.Scale(2)))
}

// FormatQuantity renders a quantity with grouping and up to three decimals.
func FormatQuantity(d decimal.Decimal) string {
	f, _ := d.Round(3).Float64()
	return amountPrinter.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}
