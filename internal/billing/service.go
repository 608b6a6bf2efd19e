package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
)

var (
	// ErrFreightNotFound indicates an unknown freight id.
	ErrFreightNotFound = fmt.Errorf("billing: freight not found: %w", shared.ErrNotFound)
	// ErrBillNotFound indicates an unknown electricity bill id.
	ErrBillNotFound = fmt.Errorf("billing: electricity bill not found: %w", shared.ErrNotFound)
	// ErrDuplicateBillMonth indicates a bill already exists for the month.
	ErrDuplicateBillMonth = fmt.Errorf("billing: bill month already recorded: %w", shared.ErrDuplicate)
)

// Service persists electricity bills and lorry freights.
type Service struct {
	store  store.Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService builds Service.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// PreviewBill computes a bill without storing it.
func (s *Service) PreviewBill(input ElectricityInput) (ElectricityBill, error) {
	components, err := ComputeBill(input.Readings)
	if err != nil {
		return ElectricityBill{}, err
	}
	return ElectricityBill{
		BillMonth:        strings.TrimSpace(input.BillMonth),
		BillDate:         input.BillDate,
		DueDate:          input.DueDate,
		MeterReadings:    input.Readings,
		BillComponents:   components,
		ManualAdjustment: input.ManualAdjustment,
		PayableAmount:    components.BillAmount.Add(input.ManualAdjustment),
		Notes:            input.Notes,
	}, nil
}

// CreateBill computes and stores a bill. One bill per month.
func (s *Service) CreateBill(ctx context.Context, input ElectricityInput) (ElectricityBill, error) {
	if strings.TrimSpace(input.BillMonth) == "" {
		return ElectricityBill{}, fmt.Errorf("billing: bill month required: %w", shared.ErrValidation)
	}
	bill, err := s.PreviewBill(input)
	if err != nil {
		return ElectricityBill{}, err
	}
	bill.ID = shared.NewID()

	s.mu.Lock()
	defer s.mu.Unlock()
	bills, err := store.LoadList[ElectricityBill](ctx, s.store, store.ElectricityBills)
	if err != nil {
		return ElectricityBill{}, err
	}
	for _, b := range bills {
		if strings.EqualFold(b.BillMonth, bill.BillMonth) {
			return ElectricityBill{}, fmt.Errorf("%w: %s", ErrDuplicateBillMonth, bill.BillMonth)
		}
	}
	if err := store.SaveList(ctx, s.store, store.ElectricityBills, append(bills, bill)); err != nil {
		return ElectricityBill{}, err
	}
	if bill.PowerFactor.Valid && bill.PowerFactor.Decimal.LessThan(TargetPowerFactor) {
		s.logger.Warn("power factor penalty",
			slog.String("bill_month", bill.BillMonth),
			slog.String("power_factor", bill.PowerFactor.Decimal.StringFixed(3)),
			slog.String("penalty", bill.PFAdjustment.StringFixed(2)))
	}
	return bill, nil
}

// Bills lists stored electricity bills.
func (s *Service) Bills(ctx context.Context) ([]ElectricityBill, error) {
	return store.LoadList[ElectricityBill](ctx, s.store, store.ElectricityBills)
}

// DeleteBill removes a stored bill.
func (s *Service) DeleteBill(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bills, err := store.LoadList[ElectricityBill](ctx, s.store, store.ElectricityBills)
	if err != nil {
		return err
	}
	for i, b := range bills {
		if b.ID == id {
			return store.SaveList(ctx, s.store, store.ElectricityBills, append(bills[:i:i], bills[i+1:]...))
		}
	}
	return ErrBillNotFound
}

// CreateFreight derives and stores a lorry freight.
func (s *Service) CreateFreight(ctx context.Context, input FreightInput) (LorryFreight, error) {
	lorry := strings.TrimSpace(input.LorryNumber)
	if lorry == "" {
		return LorryFreight{}, fmt.Errorf("billing: lorry number required: %w", shared.ErrValidation)
	}
	if input.FreightDate.IsZero() {
		return LorryFreight{}, fmt.Errorf("billing: freight date required: %w", shared.ErrValidation)
	}
	amounts, err := ComputeFreight(input.IsBran, input.FreightPerMT, input.Deductions, input.AdvancePaid)
	if err != nil {
		return LorryFreight{}, err
	}
	deductions := input.Deductions
	if deductions == nil {
		deductions = []Deduction{}
	}
	freight := LorryFreight{
		ID:             shared.NewID(),
		LorryNumber:    lorry,
		Transporter:    input.Transporter,
		AckNumber:      input.AckNumber,
		FreightDate:    input.FreightDate,
		IsBran:         input.IsBran,
		FreightPerMT:   input.FreightPerMT,
		Deductions:     deductions,
		AdvancePaid:    input.AdvancePaid,
		FreightAmounts: amounts,
		Notes:          input.Notes,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	freights, err := store.LoadList[LorryFreight](ctx, s.store, store.LorryFreights)
	if err != nil {
		return LorryFreight{}, err
	}
	if err := store.SaveList(ctx, s.store, store.LorryFreights, append(freights, freight)); err != nil {
		return LorryFreight{}, err
	}
	return freight, nil
}

// Freights lists stored lorry freights.
func (s *Service) Freights(ctx context.Context) ([]LorryFreight, error) {
	return store.LoadList[LorryFreight](ctx, s.store, store.LorryFreights)
}

// AddFreightPayment adds amount to the advance and re-derives balance and status.
func (s *Service) AddFreightPayment(ctx context.Context, id string, payment FreightPayment) (LorryFreight, error) {
	if err := shared.RequirePositive("amount", payment.Amount); err != nil {
		return LorryFreight{}, err
	}
	if payment.PaidOn.IsZero() {
		return LorryFreight{}, fmt.Errorf("billing: payment date required: %w", shared.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	freights, err := store.LoadList[LorryFreight](ctx, s.store, store.LorryFreights)
	if err != nil {
		return LorryFreight{}, err
	}
	for i := range freights {
		f := &freights[i]
		if f.ID != id {
			continue
		}
		advance := f.AdvancePaid.Add(payment.Amount)
		amounts, err := ComputeFreight(f.IsBran, f.FreightPerMT, f.Deductions, advance)
		if err != nil {
			return LorryFreight{}, err
		}
		f.AdvancePaid = advance
		f.FreightAmounts = amounts
		f.Payments = append(f.Payments, payment)
		if err := store.SaveList(ctx, s.store, store.LorryFreights, freights); err != nil {
			return LorryFreight{}, err
		}
		if f.BalanceAmount.IsNegative() {
			s.logger.Warn("freight overpaid",
				slog.String("freight_id", f.ID),
				slog.String("balance", f.BalanceAmount.String()))
		}
		return *f, nil
	}
	return LorryFreight{}, ErrFreightNotFound
}

// FreightDue sums the outstanding balance over all freights.
func (s *Service) FreightDue(ctx context.Context) (decimal.Decimal, error) {
	freights, err := s.Freights(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, f := range freights {
		if f.BalanceAmount.IsPositive() {
			total = total.Add(f.BalanceAmount)
		}
	}
	return total, nil
}
