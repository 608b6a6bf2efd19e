package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

func newTestService() (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewService(st, Config{PaymentTermDays: 15}), st
}

func riceSale(customer, date string) SaleInput {
	return SaleInput{
		CustomerName: customer,
		InvoiceDate:  shared.MustDate(date),
		Items: []LineInput{
			{Product: "broken rice", Quantity: dec("10"), Rate: dec("1800"), GSTPercent: dec("5")},
			{Product: "bran", Quantity: dec("4"), Rate: dec("1500"), GSTPercent: decimal.Zero},
		},
	}
}

func TestCreateSaleDerivesTotals(t *testing.T) {
	svc, _ := newTestService()
	sale, err := svc.CreateSale(context.Background(), riceSale("Sri Traders", "2024-04-01"))
	require.NoError(t, err)

	require.True(t, sale.Subtotal.Equal(dec("24000")))
	require.True(t, sale.GSTAmount.Equal(dec("900")))
	require.True(t, sale.TotalAmount.Equal(dec("24900")))
	require.True(t, sale.BalanceAmount.Equal(dec("24900")))
	require.Equal(t, StatusPending, sale.PaymentStatus)
	require.Equal(t, "2024-04-16", sale.DueDate.String())
}

func TestCreateSaleExplicitTerm(t *testing.T) {
	svc, _ := newTestService()
	in := riceSale("Sri Traders", "2024-04-01")
	zero := 0
	in.TermDays = &zero
	sale, err := svc.CreateSale(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "2024-04-01", sale.DueDate.String())
}

func TestCreateSaleValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, SaleInput{CustomerName: "A", InvoiceDate: shared.MustDate("2024-04-01")})
	require.ErrorIs(t, err, ErrNoItems)

	in := riceSale("A", "2024-04-01")
	in.Items[0].Quantity = decimal.Zero
	_, err = svc.CreateSale(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidNumericInput)

	_, err = svc.CreateSale(ctx, riceSale(" ", "2024-04-01"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordPaymentRederivesSale(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	sale, err := svc.CreateSale(ctx, riceSale("Sri Traders", "2024-04-01"))
	require.NoError(t, err)

	sale, _, err = svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("10000"), PaidOn: shared.MustDate("2024-04-05")})
	require.NoError(t, err)
	require.Equal(t, StatusPartial, sale.PaymentStatus)
	require.True(t, sale.BalanceAmount.Equal(dec("14900")))

	_, _, err = svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("15000"), PaidOn: shared.MustDate("2024-04-06")})
	require.ErrorIs(t, err, ErrOverpayment)

	sale, _, err = svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("14900"), PaidOn: shared.MustDate("2024-04-07")})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, sale.PaymentStatus)
	require.True(t, sale.BalanceAmount.IsZero())

	payments, err := svc.Payments(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	_, _, err = svc.RecordPayment(ctx, "missing", PaymentInput{Amount: dec("1"), PaidOn: shared.MustDate("2024-04-07")})
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestDeleteSaleCascadesPayments(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	keep, err := svc.CreateSale(ctx, riceSale("Keep", "2024-04-01"))
	require.NoError(t, err)
	drop, err := svc.CreateSale(ctx, riceSale("Drop", "2024-04-01"))
	require.NoError(t, err)

	_, _, err = svc.RecordPayment(ctx, keep.ID, PaymentInput{Amount: dec("100"), PaidOn: shared.MustDate("2024-04-02")})
	require.NoError(t, err)
	_, _, err = svc.RecordPayment(ctx, drop.ID, PaymentInput{Amount: dec("200"), PaidOn: shared.MustDate("2024-04-02")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSale(ctx, drop.ID))
	require.ErrorIs(t, svc.DeleteSale(ctx, drop.ID), ErrSaleNotFound)

	payments, err := store.LoadList[Payment](ctx, st, store.Payments)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Equal(t, keep.ID, payments[0].SaleID)

	sales, err := svc.Sales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

func TestPayrollKinds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	hamali, err := svc.CreatePayroll(ctx, PayrollHamali, PayrollInput{Worker: "Gang A", WorkDate: shared.MustDate("2024-04-01"), Quantity: dec("580"), Rate: dec("3.5")})
	require.NoError(t, err)
	require.True(t, hamali.TotalAmount.Equal(dec("2030")))

	wage, err := svc.CreatePayroll(ctx, PayrollLabourWage, PayrollInput{Worker: "Ravi", WorkDate: shared.MustDate("2024-04-01"), Quantity: dec("6"), Rate: dec("550")})
	require.NoError(t, err)
	require.True(t, wage.TotalAmount.Equal(dec("3300")))

	salary, err := svc.CreatePayroll(ctx, PayrollSupervisorSalary, PayrollInput{Worker: "Suresh", WorkDate: shared.MustDate("2024-04-30"), Rate: dec("18000")})
	require.NoError(t, err)
	require.True(t, salary.Quantity.Equal(dec("1")))
	require.True(t, salary.TotalAmount.Equal(dec("18000")))

	paid, err := svc.PayPayroll(ctx, PayrollHamali, hamali.ID, PaymentInput{Amount: dec("2030"), PaidOn: shared.MustDate("2024-04-02")})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.PaymentStatus)
	require.Equal(t, "2024-04-02", paid.LastPaidOn.String())

	_, err = svc.PayPayroll(ctx, PayrollLabourWage, wage.ID, PaymentInput{Amount: dec("4000"), PaidOn: shared.MustDate("2024-04-02")})
	require.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.PayPayroll(ctx, PayrollLabourWage, hamali.ID, PaymentInput{Amount: dec("1"), PaidOn: shared.MustDate("2024-04-02")})
	require.ErrorIs(t, err, ErrPayrollNotFound)

	_, err = svc.PayPayroll(ctx, PayrollLabourWage, wage.ID, PaymentInput{Amount: dec("100")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePayroll(ctx, "overtime", PayrollInput{Worker: "x", WorkDate: shared.MustDate("2024-04-01"), Quantity: dec("1"), Rate: dec("1")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestExpenseLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateExpense(ctx, ExpenseInput{Category: "diesel", ExpenseDate: shared.MustDate("2024-04-01"), Amount: dec("100"), PaidAmount: dec("500")})
	require.ErrorIs(t, err, ErrOverpayment)

	expense, err := svc.CreateExpense(ctx, ExpenseInput{Category: "diesel", Vendor: "HP Bunk", ExpenseDate: shared.MustDate("2024-04-01"), Amount: dec("8000"), PaidAmount: dec("3000")})
	require.NoError(t, err)
	require.Equal(t, StatusPartial, expense.PaymentStatus)

	_, err = svc.PayExpense(ctx, expense.ID, PaymentInput{Amount: dec("6000"), PaidOn: shared.MustDate("2024-04-05")})
	require.ErrorIs(t, err, ErrOverpayment)
	_, err = svc.PayExpense(ctx, expense.ID, PaymentInput{Amount: dec("1000")})
	require.ErrorIs(t, err, shared.ErrValidation)

	paid, err := svc.PayExpense(ctx, expense.ID, PaymentInput{Amount: dec("5000"), PaidOn: shared.MustDate("2024-04-05")})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.PaymentStatus)
	require.True(t, paid.BalanceAmount.IsZero())
	require.Equal(t, "2024-04-05", paid.LastPaidOn.String())

	_, err = svc.PayExpense(ctx, "missing", PaymentInput{Amount: dec("1"), PaidOn: shared.MustDate("2024-04-05")})
	require.ErrorIs(t, err, ErrExpenseNotFound)

	require.NoError(t, svc.DeleteExpense(ctx, expense.ID))
	expenses, err := svc.Expenses(ctx)
	require.NoError(t, err)
	require.Empty(t, expenses)
	require.ErrorIs(t, svc.DeleteExpense(ctx, expense.ID), ErrExpenseNotFound)
}

func TestOutstandingAggregatesAllSources(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, riceSale("Sri Traders", "2024-01-01")) // due 2024-01-16
	require.NoError(t, err)
	_, _, err = svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("4900"), PaidOn: shared.MustDate("2024-01-10")})
	require.NoError(t, err)

	_, err = svc.CreateExpense(ctx, ExpenseInput{Category: "diesel", Vendor: "HP Bunk", ExpenseDate: shared.MustDate("2024-02-20"), Amount: dec("8000"), PaidAmount: dec("3000")})
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, ExpenseInput{Category: "tea", ExpenseDate: shared.MustDate("2024-02-20"), Amount: dec("300"), PaidAmount: dec("300")})
	require.NoError(t, err)
	_, err = svc.CreatePayroll(ctx, PayrollLabourWage, PayrollInput{Worker: "Ravi", WorkDate: shared.MustDate("2024-03-01"), Quantity: dec("2"), Rate: dec("500")})
	require.NoError(t, err)

	freights := []map[string]any{
		{"id": "f1", "lorryNumber": "AP09 1234", "freightDate": "2024-02-25", "balanceAmount": 35000},
		{"id": "f2", "lorryNumber": "AP09 9999", "freightDate": "2024-02-25", "balanceAmount": 0},
	}
	require.NoError(t, store.SaveList(ctx, st, store.LorryFreights, freights))

	report, err := svc.Outstanding(ctx, shared.MustDate("2024-03-01"))
	require.NoError(t, err)
	require.True(t, report.Receivables.Equal(dec("20000")))
	require.True(t, report.Payables.Equal(dec("6000")))
	require.True(t, report.FreightDues.Equal(dec("35000")))

	// sale 45 days late, expense 10, freight 5, wage due today
	require.True(t, report.ReceivableAging.Days31To60.Equal(dec("20000")))
	require.True(t, report.PayableAging.Days1To30.Equal(dec("40000")))
	require.True(t, report.PayableAging.Current.Equal(dec("1000")))

	require.Len(t, report.Overdue, 3)
	require.Equal(t, ItemSale, report.Overdue[0].Kind)
	require.Equal(t, 45, report.Overdue[0].DaysOverdue)
	require.Equal(t, ItemFreight, report.Overdue[2].Kind)
	require.Equal(t, "AP09 1234", report.Overdue[2].Party)
}
