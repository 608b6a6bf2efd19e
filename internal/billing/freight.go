package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/ledger"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Lorry load sizes in metric tonnes.
var (
	RiceLoadMT = decimal.NewFromInt(58)
	BranLoadMT = decimal.NewFromInt(29)
)

// FreightStatus is the derived payment state of a lorry freight.
type FreightStatus string

const (
	FreightPending     FreightStatus = "pending"
	FreightAdvancePaid FreightStatus = "advance-paid"
	FreightFullyPaid   FreightStatus = "fully-paid"
)

// Deduction reduces the gross freight, e.g. for shortage or damage.
type Deduction struct {
	Reason string          `json:"reason,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// FreightAmounts are derived from quantity, rate, deductions and advance.
type FreightAmounts struct {
	QuantityMT         decimal.Decimal `json:"quantityMT"`
	GrossFreightAmount decimal.Decimal `json:"grossFreightAmount"`
	TotalDeductions    decimal.Decimal `json:"totalDeductions"`
	NetFreightAmount   decimal.Decimal `json:"netFreightAmount"`
	BalanceAmount      decimal.Decimal `json:"balanceAmount"`
	PaymentStatus      FreightStatus   `json:"paymentStatus"`
}

// LoadMT returns the lorry load for the cargo.
func LoadMT(bran bool) decimal.Decimal {
	if bran {
		return BranLoadMT
	}
	return RiceLoadMT
}

// ComputeFreight derives freight amounts for one lorry.
func ComputeFreight(bran bool, freightPerMT decimal.Decimal, deductions []Deduction, advancePaid decimal.Decimal) (FreightAmounts, error) {
	if err := shared.RequirePositive("freightPerMT", freightPerMT); err != nil {
		return FreightAmounts{}, err
	}
	if err := shared.RequireNonNegative("advancePaid", advancePaid); err != nil {
		return FreightAmounts{}, err
	}
	a := FreightAmounts{QuantityMT: LoadMT(bran), TotalDeductions: decimal.Zero}
	for i, d := range deductions {
		if err := shared.RequireNonNegative(fmt.Sprintf("deductions[%d].amount", i), d.Amount); err != nil {
			return FreightAmounts{}, err
		}
		a.TotalDeductions = a.TotalDeductions.Add(d.Amount)
	}
	a.GrossFreightAmount = a.QuantityMT.Mul(freightPerMT)
	a.NetFreightAmount = a.GrossFreightAmount.Sub(a.TotalDeductions)
	a.BalanceAmount = ledger.ComputeBalance(a.NetFreightAmount, advancePaid)
	a.PaymentStatus = freightStatus(a.BalanceAmount, advancePaid)
	return a, nil
}

func freightStatus(balance, advancePaid decimal.Decimal) FreightStatus {
	switch {
	case !balance.IsPositive():
		return FreightFullyPaid
	case advancePaid.IsPositive():
		return FreightAdvancePaid
	default:
		return FreightPending
	}
}

// FreightPayment is one instalment paid to the transporter.
type FreightPayment struct {
	Amount decimal.Decimal `json:"amount"`
	PaidOn shared.Date     `json:"paidOn"`
	Mode   string          `json:"mode,omitempty"`
}

// LorryFreight is a persisted freight record. AdvancePaid accumulates every payment.
type LorryFreight struct {
	ID           string          `json:"id"`
	LorryNumber  string          `json:"lorryNumber"`
	Transporter  string          `json:"transporter,omitempty"`
	AckNumber    string          `json:"ackNumber,omitempty"`
	FreightDate  shared.Date     `json:"freightDate"`
	IsBran       bool            `json:"isBran"`
	FreightPerMT decimal.Decimal `json:"freightPerMT"`
	Deductions   []Deduction     `json:"deductions"`
	AdvancePaid  decimal.Decimal `json:"advancePaid"`
	FreightAmounts
	Payments []FreightPayment `json:"payments,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

// FreightInput describes a new lorry freight.
type FreightInput struct {
	LorryNumber  string
	Transporter  string
	AckNumber    string
	FreightDate  shared.Date
	IsBran       bool
	FreightPerMT decimal.Decimal
	Deductions   []Deduction
	AdvancePaid  decimal.Decimal
	Notes        string
}
