// Package ledger derives balances, payment status and aging for sales,
// expenses, payroll and freight records.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// PaymentStatus is derived from total and paid amounts; it is never entered by hand.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

// ErrUndefinedRatio is returned when a per-unit figure would divide by zero.
var ErrUndefinedRatio = shared.ErrUndefinedRatio

var hundred = decimal.NewFromInt(100)

// ComputeBalance returns total - paid.
func ComputeBalance(total, paid decimal.Decimal) decimal.Decimal {
	return total.Sub(paid)
}

// ComputePaymentStatus classifies a record by how much of it was paid.
func ComputePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// ComputeDaysOverdue returns the signed number of days today is past due.
// Negative means not yet due.
func ComputeDaysOverdue(due, today shared.Date) int {
	if due.IsZero() {
		return 0
	}
	return today.DaysSince(due)
}

// DisplayDaysOverdue clamps ComputeDaysOverdue at zero.
func DisplayDaysOverdue(due, today shared.Date) int {
	if days := ComputeDaysOverdue(due, today); days > 0 {
		return days
	}
	return 0
}

// ComputeDueDate adds termDays calendar days to issue.
func ComputeDueDate(issue shared.Date, termDays int) shared.Date {
	return issue.AddDays(termDays)
}

// LineTotals is the priced result of one line item.
type LineTotals struct {
	Amount      decimal.Decimal `json:"amount"`
	GSTAmount   decimal.Decimal `json:"gstAmount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// CalculateLineTotals prices a line. GST applies to the pre-tax amount only.
func CalculateLineTotals(quantity, rate, gstPercent decimal.Decimal) LineTotals {
	amount := quantity.Mul(rate)
	gst := amount.Mul(gstPercent).Div(hundred)
	return LineTotals{Amount: amount, GSTAmount: gst, TotalAmount: amount.Add(gst)}
}

// CostPerUnit divides a total cost by the quantity it bought.
func CostPerUnit(total, quantity decimal.Decimal) (decimal.Decimal, error) {
	return shared.Ratio(total, quantity)
}

// AgingBuckets groups outstanding balances by days past due.
type AgingBuckets struct {
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"days1To30"`
	Days31To60 decimal.Decimal `json:"days31To60"`
	Days61To90 decimal.Decimal `json:"days61To90"`
	Over90     decimal.Decimal `json:"over90"`
}

// Add places balance into the bucket for daysOverdue.
func (b *AgingBuckets) Add(daysOverdue int, balance decimal.Decimal) {
	switch {
	case daysOverdue <= 0:
		b.Current = b.Current.Add(balance)
	case daysOverdue <= 30:
		b.Days1To30 = b.Days1To30.Add(balance)
	case daysOverdue <= 60:
		b.Days31To60 = b.Days31To60.Add(balance)
	case daysOverdue <= 90:
		b.Days61To90 = b.Days61To90.Add(balance)
	default:
		b.Over90 = b.Over90.Add(balance)
	}
}

// Total sums every bucket.
func (b AgingBuckets) Total() decimal.Decimal {
	return b.Current.Add(b.Days1To30).Add(b.Days31To60).Add(b.Days61To90).Add(b.Over90)
}

// Entry carries the derived amount fields shared by every ledger record.
type Entry struct {
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	BalanceAmount decimal.Decimal `json:"balanceAmount"`
	DueDate       shared.Date     `json:"dueDate"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
}

// NewEntry derives balance and status from total and paid.
func NewEntry(total, paid decimal.Decimal, due shared.Date) Entry {
	return Entry{
		TotalAmount:   total,
		PaidAmount:    paid,
		BalanceAmount: ComputeBalance(total, paid),
		DueDate:       due,
		PaymentStatus: ComputePaymentStatus(total, paid),
	}
}

// Pay adds amount to the paid total and re-derives balance and status.
func (e *Entry) Pay(amount decimal.Decimal) {
	*e = NewEntry(e.TotalAmount, e.PaidAmount.Add(amount), e.DueDate)
}

// Outstanding reports whether a balance remains.
func (e Entry) Outstanding() bool {
	return e.BalanceAmount.IsPositive()
}
