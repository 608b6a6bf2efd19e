package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

// LineItem is one priced product on a sale.
type LineItem struct {
	Product    string          `json:"product"`
	Quantity   decimal.Decimal `json:"quantity"`
	Rate       decimal.Decimal `json:"rate"`
	GSTPercent decimal.Decimal `json:"gstPercent"`
	LineTotals
}

// Sale is a receivable raised against a customer.
type Sale struct {
	ID           string          `json:"id"`
	InvoiceNo    string          `json:"invoiceNo,omitempty"`
	CustomerName string          `json:"customerName"`
	InvoiceDate  shared.Date     `json:"invoiceDate"`
	Items        []LineItem      `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	GSTAmount    decimal.Decimal `json:"gstAmount"`
	Entry
	Notes string `json:"notes,omitempty"`
}

// LineInput is a requested line before pricing.
type LineInput struct {
	Product    string
	Quantity   decimal.Decimal
	Rate       decimal.Decimal
	GSTPercent decimal.Decimal
}

// SaleInput describes a new sale. TermDays falls back to the configured term when nil.
type SaleInput struct {
	InvoiceNo    string
	CustomerName string
	InvoiceDate  shared.Date
	TermDays     *int
	Items        []LineInput
	Notes        string
}

// Payment settles part of a sale.
type Payment struct {
	ID     string          `json:"id"`
	SaleID string          `json:"saleId"`
	Amount decimal.Decimal `json:"amount"`
	PaidOn shared.Date     `json:"paidOn"`
	Mode   string          `json:"mode,omitempty"`
	Notes  string          `json:"notes,omitempty"`
}

// PaymentInput describes a payment against a sale or payroll entry.
type PaymentInput struct {
	Amount decimal.Decimal
	PaidOn shared.Date
	Mode   string
	Notes  string
}

// Expense is a payable to a vendor.
type Expense struct {
	ID          string      `json:"id"`
	Category    string      `json:"category"`
	Vendor      string      `json:"vendor,omitempty"`
	Description string      `json:"description,omitempty"`
	ExpenseDate shared.Date `json:"expenseDate"`
	Entry
	LastPaidOn shared.Date `json:"lastPaidOn,omitempty"`
}

// ExpenseInput describes a new expense. A zero DueDate means due on ExpenseDate.
type ExpenseInput struct {
	Category    string
	Vendor      string
	Description string
	ExpenseDate shared.Date
	DueDate     shared.Date
	Amount      decimal.Decimal
	PaidAmount  decimal.Decimal
}

// PayrollKind selects how a payroll entry is priced and where it is kept.
type PayrollKind string

const (
	// PayrollHamali is piece-rate loading work: units × rate.
	PayrollHamali PayrollKind = "hamali"
	// PayrollLabourWage is day labour: days × daily rate.
	PayrollLabourWage PayrollKind = "labour-wage"
	// PayrollSupervisorSalary is a monthly salary: months × monthly amount.
	PayrollSupervisorSalary PayrollKind = "supervisor-salary"
)

// ParsePayrollKind validates a kind taken from a request path.
func ParsePayrollKind(raw string) (PayrollKind, error) {
	switch k := PayrollKind(raw); k {
	case PayrollHamali, PayrollLabourWage, PayrollSupervisorSalary:
		return k, nil
	}
	return "", fmt.Errorf("ledger: unknown payroll kind %q: %w", raw, shared.ErrValidation)
}

// Collection returns the store key for the kind.
func (k PayrollKind) Collection() string {
	switch k {
	case PayrollHamali:
		return store.HamaliWork
	case PayrollLabourWage:
		return store.LabourWages
	case PayrollSupervisorSalary:
		return store.SupervisorSalaries
	}
	return ""
}

// PayrollEntry is owed to a worker, gang or supervisor.
type PayrollEntry struct {
	ID       string          `json:"id"`
	Kind     PayrollKind     `json:"kind"`
	Worker   string          `json:"worker"`
	WorkDate shared.Date     `json:"workDate"`
	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	Entry
	LastPaidOn shared.Date `json:"lastPaidOn,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

// PayrollInput describes work done. Quantity is units, days or months by kind.
type PayrollInput struct {
	Worker   string
	WorkDate shared.Date
	Quantity decimal.Decimal
	Rate     decimal.Decimal
	Notes    string
}

// freightDue is the slice of a lorry freight record the outstanding report reads.
type freightDue struct {
	ID            string          `json:"id"`
	LorryNumber   string          `json:"lorryNumber"`
	Transporter   string          `json:"transporter"`
	FreightDate   shared.Date     `json:"freightDate"`
	BalanceAmount decimal.Decimal `json:"balanceAmount"`
}

// ItemKind tags an outstanding item with its source collection.
type ItemKind string

const (
	ItemSale             ItemKind = "sale"
	ItemExpense          ItemKind = "expense"
	ItemFreight          ItemKind = "freight"
	ItemHamali           ItemKind = ItemKind(PayrollHamali)
	ItemLabourWage       ItemKind = ItemKind(PayrollLabourWage)
	ItemSupervisorSalary ItemKind = ItemKind(PayrollSupervisorSalary)
)

// ItemKinds lists every kind Outstanding can report.
var ItemKinds = []ItemKind{ItemSale, ItemExpense, ItemHamali, ItemLabourWage, ItemSupervisorSalary, ItemFreight}

// OutstandingItem is one record with a balance still due.
type OutstandingItem struct {
	Kind        ItemKind        `json:"kind"`
	ID          string          `json:"id"`
	Party       string          `json:"party"`
	DueDate     shared.Date     `json:"dueDate"`
	Balance     decimal.Decimal `json:"balance"`
	DaysOverdue int             `json:"daysOverdue"`
}

// Outstanding summarises what is owed to and by the mill on a date.
type Outstanding struct {
	AsOf            shared.Date       `json:"asOf"`
	Receivables     decimal.Decimal   `json:"receivables"`
	Payables        decimal.Decimal   `json:"payables"`
	FreightDues     decimal.Decimal   `json:"freightDues"`
	ReceivableAging AgingBuckets      `json:"receivableAging"`
	PayableAging    AgingBuckets      `json:"payableAging"`
	Overdue         []OutstandingItem `json:"overdue"`
}

var (
	// ErrSaleNotFound indicates an unknown sale id.
	ErrSaleNotFound = fmt.Errorf("ledger: sale not found: %w", shared.ErrNotFound)
	// ErrExpenseNotFound indicates an unknown expense id.
	ErrExpenseNotFound = fmt.Errorf("ledger: expense not found: %w", shared.ErrNotFound)
	// ErrPayrollNotFound indicates an unknown payroll entry id.
	ErrPayrollNotFound = fmt.Errorf("ledger: payroll entry not found: %w", shared.ErrNotFound)
	// ErrOverpayment indicates a payment larger than the remaining balance.
	ErrOverpayment = fmt.Errorf("ledger: payment exceeds balance: %w", shared.ErrConflict)
	// ErrNoItems indicates a sale without line items.
	ErrNoItems = fmt.Errorf("ledger: sale needs at least one item: %w", shared.ErrValidation)
)
