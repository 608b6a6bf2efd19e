package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

// DefaultPaymentTermDays applies when neither the sale nor the config sets a term.
const DefaultPaymentTermDays = 30

// Config groups Service settings.
type Config struct {
	PaymentTermDays int
	Logger          *slog.Logger
}

// Service keeps sales, payments, expenses and payroll in a store.
type Service struct {
	store    store.Store
	termDays int
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewService builds Service.
func NewService(st store.Store, cfg Config) *Service {
	term := cfg.PaymentTermDays
	if term <= 0 {
		term = DefaultPaymentTermDays
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, termDays: term, logger: logger}
}

// CreateSale prices the items and stores a pending sale.
func (s *Service) CreateSale(ctx context.Context, input SaleInput) (Sale, error) {
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return Sale{}, fmt.Errorf("ledger: customer name required: %w", shared.ErrValidation)
	}
	if input.InvoiceDate.IsZero() {
		return Sale{}, fmt.Errorf("ledger: invoice date required: %w", shared.ErrValidation)
	}
	if len(input.Items) == 0 {
		return Sale{}, ErrNoItems
	}
	term := s.termDays
	if input.TermDays != nil {
		if *input.TermDays < 0 {
			return Sale{}, fmt.Errorf("ledger: term days must not be negative: %w", shared.ErrValidation)
		}
		term = *input.TermDays
	}

	sale := Sale{
		ID:           shared.NewID(),
		InvoiceNo:    input.InvoiceNo,
		CustomerName: customer,
		InvoiceDate:  input.InvoiceDate,
		Subtotal:     decimal.Zero,
		GSTAmount:    decimal.Zero,
		Notes:        input.Notes,
	}
	total := decimal.Zero
	for i, in := range input.Items {
		if err := shared.RequirePositive(fmt.Sprintf("items[%d].quantity", i), in.Quantity); err != nil {
			return Sale{}, err
		}
		if err := shared.RequireNonNegative(fmt.Sprintf("items[%d].rate", i), in.Rate); err != nil {
			return Sale{}, err
		}
		if err := shared.RequireNonNegative(fmt.Sprintf("items[%d].gstPercent", i), in.GSTPercent); err != nil {
			return Sale{}, err
		}
		line := LineItem{
			Product:    in.Product,
			Quantity:   in.Quantity,
			Rate:       in.Rate,
			GSTPercent: in.GSTPercent,
			LineTotals: CalculateLineTotals(in.Quantity, in.Rate, in.GSTPercent),
		}
		sale.Items = append(sale.Items, line)
		sale.Subtotal = sale.Subtotal.Add(line.Amount)
		sale.GSTAmount = sale.GSTAmount.Add(line.LineTotals.GSTAmount)
		total = total.Add(line.TotalAmount)
	}
	sale.Entry = NewEntry(total, decimal.Zero, ComputeDueDate(input.InvoiceDate, term))

	s.mu.Lock()
	defer s.mu.Unlock()
	sales, err := store.LoadList[Sale](ctx, s.store, store.Sales)
	if err != nil {
		return Sale{}, err
	}
	if err := store.SaveList(ctx, s.store, store.Sales, append(sales, sale)); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// Sales lists all sales.
func (s *Service) Sales(ctx context.Context) ([]Sale, error) {
	return store.LoadList[Sale](ctx, s.store, store.Sales)
}

// Payments lists payments recorded against saleID.
func (s *Service) Payments(ctx context.Context, saleID string) ([]Payment, error) {
	all, err := store.LoadList[Payment](ctx, s.store, store.Payments)
	if err != nil {
		return nil, err
	}
	out := []Payment{}
	for _, p := range all {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

// RecordPayment appends a payment and re-derives the sale's paid amount from
// every payment on file.
func (s *Service) RecordPayment(ctx context.Context, saleID string, input PaymentInput) (Sale, Payment, error) {
	if err := shared.RequirePositive("amount", input.Amount); err != nil {
		return Sale{}, Payment{}, err
	}
	if input.PaidOn.IsZero() {
		return Sale{}, Payment{}, fmt.Errorf("ledger: payment date required: %w", shared.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sales, err := store.LoadList[Sale](ctx, s.store, store.Sales)
	if err != nil {
		return Sale{}, Payment{}, err
	}
	idx := -1
	for i := range sales {
		if sales[i].ID == saleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Sale{}, Payment{}, ErrSaleNotFound
	}
	payments, err := store.LoadList[Payment](ctx, s.store, store.Payments)
	if err != nil {
		return Sale{}, Payment{}, err
	}
	paid := decimal.Zero
	for _, p := range payments {
		if p.SaleID == saleID {
			paid = paid.Add(p.Amount)
		}
	}
	sale := sales[idx]
	if paid.Add(input.Amount).GreaterThan(sale.TotalAmount) {
		return Sale{}, Payment{}, fmt.Errorf("%w: balance %s, payment %s", ErrOverpayment, ComputeBalance(sale.TotalAmount, paid), input.Amount)
	}
	payment := Payment{
		ID:     shared.NewID(),
		SaleID: saleID,
		Amount: input.Amount,
		PaidOn: input.PaidOn,
		Mode:   input.Mode,
		Notes:  input.Notes,
	}
	sale.Entry = NewEntry(sale.TotalAmount, paid.Add(input.Amount), sale.DueDate)
	sales[idx] = sale

	if err := store.SaveList(ctx, s.store, store.Payments, append(payments, payment)); err != nil {
		return Sale{}, Payment{}, err
	}
	if err := store.SaveList(ctx, s.store, store.Sales, sales); err != nil {
		return Sale{}, Payment{}, err
	}
	return sale, payment, nil
}

// DeleteSale removes a sale together with its payments.
func (s *Service) DeleteSale(ctx context.Context, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sales, err := store.LoadList[Sale](ctx, s.store, store.Sales)
	if err != nil {
		return err
	}
	kept := sales[:0:0]
	for _, sale := range sales {
		if sale.ID != saleID {
			kept = append(kept, sale)
		}
	}
	if len(kept) == len(sales) {
		return ErrSaleNotFound
	}
	payments, err := store.LoadList[Payment](ctx, s.store, store.Payments)
	if err != nil {
		return err
	}
	keptPayments := payments[:0:0]
	for _, p := range payments {
		if p.SaleID != saleID {
			keptPayments = append(keptPayments, p)
		}
	}
	if err := store.SaveList(ctx, s.store, store.Payments, keptPayments); err != nil {
		return err
	}
	if err := store.SaveList(ctx, s.store, store.Sales, kept); err != nil {
		return err
	}
	s.logger.Info("sale deleted",
		slog.String("sale_id", saleID),
		slog.Int("payments_removed", len(payments)-len(keptPayments)))
	return nil
}

// CreateExpense stores a payable.
func (s *Service) CreateExpense(ctx context.Context, input ExpenseInput) (Expense, error) {
	if strings.TrimSpace(input.Category) == "" {
		return Expense{}, fmt.Errorf("ledger: expense category required: %w", shared.ErrValidation)
	}
	if input.ExpenseDate.IsZero() {
		return Expense{}, fmt.Errorf("ledger: expense date required: %w", shared.ErrValidation)
	}
	if err := shared.RequirePositive("amount", input.Amount); err != nil {
		return Expense{}, err
	}
	if err := shared.RequireNonNegative("paidAmount", input.PaidAmount); err != nil {
		return Expense{}, err
	}
	if input.PaidAmount.GreaterThan(input.Amount) {
		return Expense{}, fmt.Errorf("%w: total %s, paid %s", ErrOverpayment, input.Amount, input.PaidAmount)
	}
	due := input.DueDate
	if due.IsZero() {
		due = input.ExpenseDate
	}
	expense := Expense{
		ID:          shared.NewID(),
		Category:    strings.TrimSpace(input.Category),
		Vendor:      input.Vendor,
		Description: input.Description,
		ExpenseDate: input.ExpenseDate,
		Entry:       NewEntry(input.Amount, input.PaidAmount, due),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expenses, err := store.LoadList[Expense](ctx, s.store, store.Expenses)
	if err != nil {
		return Expense{}, err
	}
	if err := store.SaveList(ctx, s.store, store.Expenses, append(expenses, expense)); err != nil {
		return Expense{}, err
	}
	return expense, nil
}

// Expenses lists all expenses.
func (s *Service) Expenses(ctx context.Context) ([]Expense, error) {
	return store.LoadList[Expense](ctx, s.store, store.Expenses)
}

// PayExpense records a payment against an expense.
func (s *Service) PayExpense(ctx context.Context, id string, input PaymentInput) (Expense, error) {
	if err := shared.RequirePositive("amount", input.Amount); err != nil {
		return Expense{}, err
	}
	if input.PaidOn.IsZero() {
		return Expense{}, fmt.Errorf("ledger: payment date required: %w", shared.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expenses, err := store.LoadList[Expense](ctx, s.store, store.Expenses)
	if err != nil {
		return Expense{}, err
	}
	for i := range expenses {
		if expenses[i].ID != id {
			continue
		}
		if input.Amount.GreaterThan(expenses[i].BalanceAmount) {
			return Expense{}, fmt.Errorf("%w: balance %s, payment %s", ErrOverpayment, expenses[i].BalanceAmount, input.Amount)
		}
		expenses[i].Pay(input.Amount)
		expenses[i].LastPaidOn = input.PaidOn
		if err := store.SaveList(ctx, s.store, store.Expenses, expenses); err != nil {
			return Expense{}, err
		}
		return expenses[i], nil
	}
	return Expense{}, ErrExpenseNotFound
}

// DeleteExpense removes an expense. Its paid amount lives on the record and
// goes with it.
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expenses, err := store.LoadList[Expense](ctx, s.store, store.Expenses)
	if err != nil {
		return err
	}
	kept := expenses[:0:0]
	for _, e := range expenses {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(expenses) {
		return ErrExpenseNotFound
	}
	if err := store.SaveList(ctx, s.store, store.Expenses, kept); err != nil {
		return err
	}
	s.logger.Info("expense deleted", slog.String("expense_id", id))
	return nil
}

// CreatePayroll prices work done as quantity × rate and stores it unpaid.
func (s *Service) CreatePayroll(ctx context.Context, kind PayrollKind, input PayrollInput) (PayrollEntry, error) {
	key := kind.Collection()
	if key == "" {
		return PayrollEntry{}, fmt.Errorf("ledger: unknown payroll kind %q: %w", kind, shared.ErrValidation)
	}
	worker := strings.TrimSpace(input.Worker)
	if worker == "" {
		return PayrollEntry{}, fmt.Errorf("ledger: worker required: %w", shared.ErrValidation)
	}
	if input.WorkDate.IsZero() {
		return PayrollEntry{}, fmt.Errorf("ledger: work date required: %w", shared.ErrValidation)
	}
	quantity := input.Quantity
	if kind == PayrollSupervisorSalary && quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	if err := shared.RequirePositive("quantity", quantity); err != nil {
		return PayrollEntry{}, err
	}
	if err := shared.RequirePositive("rate", input.Rate); err != nil {
		return PayrollEntry{}, err
	}
	entry := PayrollEntry{
		ID:       shared.NewID(),
		Kind:     kind,
		Worker:   worker,
		WorkDate: input.WorkDate,
		Quantity: quantity,
		Rate:     input.Rate,
		Entry:    NewEntry(quantity.Mul(input.Rate), decimal.Zero, input.WorkDate),
		Notes:    input.Notes,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := store.LoadList[PayrollEntry](ctx, s.store, key)
	if err != nil {
		return PayrollEntry{}, err
	}
	if err := store.SaveList(ctx, s.store, key, append(entries, entry)); err != nil {
		return PayrollEntry{}, err
	}
	return entry, nil
}

// Payroll lists entries of kind.
func (s *Service) Payroll(ctx context.Context, kind PayrollKind) ([]PayrollEntry, error) {
	key := kind.Collection()
	if key == "" {
		return nil, fmt.Errorf("ledger: unknown payroll kind %q: %w", kind, shared.ErrValidation)
	}
	return store.LoadList[PayrollEntry](ctx, s.store, key)
}

// PayPayroll records a payment against a payroll entry.
func (s *Service) PayPayroll(ctx context.Context, kind PayrollKind, id string, input PaymentInput) (PayrollEntry, error) {
	key := kind.Collection()
	if key == "" {
		return PayrollEntry{}, fmt.Errorf("ledger: unknown payroll kind %q: %w", kind, shared.ErrValidation)
	}
	if err := shared.RequirePositive("amount", input.Amount); err != nil {
		return PayrollEntry{}, err
	}
	if input.PaidOn.IsZero() {
		return PayrollEntry{}, fmt.Errorf("ledger: payment date required: %w", shared.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := store.LoadList[PayrollEntry](ctx, s.store, key)
	if err != nil {
		return PayrollEntry{}, err
	}
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		if input.Amount.GreaterThan(entries[i].BalanceAmount) {
			return PayrollEntry{}, fmt.Errorf("%w: balance %s, payment %s", ErrOverpayment, entries[i].BalanceAmount, input.Amount)
		}
		entries[i].Pay(input.Amount)
		entries[i].LastPaidOn = input.PaidOn
		if err := store.SaveList(ctx, s.store, key, entries); err != nil {
			return PayrollEntry{}, err
		}
		return entries[i], nil
	}
	return PayrollEntry{}, ErrPayrollNotFound
}

// Outstanding derives receivables, payables and freight dues as of asOf.
// Payroll counts as a payable due on the day the work was done.
func (s *Service) Outstanding(ctx context.Context, asOf shared.Date) (Outstanding, error) {
	if asOf.IsZero() {
		asOf = shared.Today()
	}
	report := Outstanding{
		AsOf:        asOf,
		Receivables: decimal.Zero,
		Payables:    decimal.Zero,
		FreightDues: decimal.Zero,
		Overdue:     []OutstandingItem{},
	}
	zeroBuckets(&report.ReceivableAging)
	zeroBuckets(&report.PayableAging)

	note := func(item OutstandingItem, aging *AgingBuckets) {
		item.DaysOverdue = ComputeDaysOverdue(item.DueDate, asOf)
		aging.Add(item.DaysOverdue, item.Balance)
		if item.DaysOverdue > 0 {
			report.Overdue = append(report.Overdue, item)
		}
	}

	sales, err := store.LoadList[Sale](ctx, s.store, store.Sales)
	if err != nil {
		return Outstanding{}, err
	}
	for _, sale := range sales {
		if !sale.Outstanding() {
			continue
		}
		report.Receivables = report.Receivables.Add(sale.BalanceAmount)
		note(OutstandingItem{Kind: ItemSale, ID: sale.ID, Party: sale.CustomerName, DueDate: sale.DueDate, Balance: sale.BalanceAmount}, &report.ReceivableAging)
	}

	expenses, err := store.LoadList[Expense](ctx, s.store, store.Expenses)
	if err != nil {
		return Outstanding{}, err
	}
	for _, e := range expenses {
		if !e.Outstanding() {
			continue
		}
		report.Payables = report.Payables.Add(e.BalanceAmount)
		note(OutstandingItem{Kind: ItemExpense, ID: e.ID, Party: e.Vendor, DueDate: e.DueDate, Balance: e.BalanceAmount}, &report.PayableAging)
	}

	for _, kind := range []PayrollKind{PayrollHamali, PayrollLabourWage, PayrollSupervisorSalary} {
		entries, err := store.LoadList[PayrollEntry](ctx, s.store, kind.Collection())
		if err != nil {
			return Outstanding{}, err
		}
		for _, e := range entries {
			if !e.Outstanding() {
				continue
			}
			report.Payables = report.Payables.Add(e.BalanceAmount)
			note(OutstandingItem{Kind: ItemKind(kind), ID: e.ID, Party: e.Worker, DueDate: e.DueDate, Balance: e.BalanceAmount}, &report.PayableAging)
		}
	}

	freights, err := store.LoadList[freightDue](ctx, s.store, store.LorryFreights)
	if err != nil {
		return Outstanding{}, err
	}
	for _, f := range freights {
		if !f.BalanceAmount.IsPositive() {
			continue
		}
		report.FreightDues = report.FreightDues.Add(f.BalanceAmount)
		party := f.Transporter
		if party == "" {
			party = f.LorryNumber
		}
		note(OutstandingItem{Kind: ItemFreight, ID: f.ID, Party: party, DueDate: f.FreightDate, Balance: f.BalanceAmount}, &report.PayableAging)
	}

	sort.SliceStable(report.Overdue, func(i, j int) bool {
		return report.Overdue[i].DaysOverdue > report.Overdue[j].DaysOverdue
	})
	return report, nil
}

func zeroBuckets(b *AgingBuckets) {
	b.Current = decimal.Zero
	b.Days1To30 = decimal.Zero
	b.Days31To60 = decimal.Zero
	b.Days61To90 = decimal.Zero
	b.Over90 = decimal.Zero
}
