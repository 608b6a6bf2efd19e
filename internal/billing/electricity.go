// Package billing derives electricity bill components and lorry freight dues
// from raw readings and quantities.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// HT-II(A) tariff constants.
var (
	DemandFloorRatio    = decimal.RequireFromString("0.8")
	DemandChargePerKVA  = decimal.NewFromInt(475)
	EnergyChargePerKwh  = decimal.RequireFromString("6.70")
	FuelSurchargePerKwh = decimal.RequireFromString("1.85")
	EDDutyRate          = decimal.RequireFromString("0.06")
	CustomerCharges     = decimal.NewFromInt(250)
	TargetPowerFactor   = decimal.RequireFromString("0.95")
	PFPenaltyRate       = decimal.RequireFromString("0.01")
	PFRebateRate        = decimal.RequireFromString("0.005")
)

var hundred = decimal.NewFromInt(100)

// ErrNegativeConsumption indicates a current reading below the previous one.
var ErrNegativeConsumption = fmt.Errorf("billing: current reading below previous reading: %w", shared.ErrValidation)

// MeterReadings are the raw inputs of one month's bill.
type MeterReadings struct {
	PreviousKwh    decimal.Decimal `json:"previousKwh"`
	CurrentKwh     decimal.Decimal `json:"currentKwh"`
	PreviousKvah   decimal.Decimal `json:"previousKvah"`
	CurrentKvah    decimal.Decimal `json:"currentKvah"`
	RMD            decimal.Decimal `json:"rmd"`
	ContractDemand decimal.Decimal `json:"contractDemand"`
}

// BillComponents are derived from MeterReadings. PowerFactor is invalid when
// no kVAh was consumed, and then no pf adjustment applies.
type BillComponents struct {
	KwhConsumed     decimal.Decimal     `json:"kwhConsumed"`
	KvahConsumed    decimal.Decimal     `json:"kvahConsumed"`
	PowerFactor     decimal.NullDecimal `json:"powerFactor"`
	BillingDemand   decimal.Decimal     `json:"billingDemand"`
	FixedCharges    decimal.Decimal     `json:"fixedCharges"`
	EnergyCharges   decimal.Decimal     `json:"energyCharges"`
	FuelSurcharge   decimal.Decimal     `json:"fuelSurcharge"`
	EDDuty          decimal.Decimal     `json:"edDuty"`
	CustomerCharges decimal.Decimal     `json:"customerCharges"`
	PFAdjustment    decimal.Decimal     `json:"pfAdjustment"`
	BillAmount      decimal.Decimal     `json:"billAmount"`
}

// Validate rejects negative readings and meter rollback.
func (m MeterReadings) Validate() error {
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"previousKwh", m.PreviousKwh},
		{"currentKwh", m.CurrentKwh},
		{"previousKvah", m.PreviousKvah},
		{"currentKvah", m.CurrentKvah},
		{"rmd", m.RMD},
		{"contractDemand", m.ContractDemand},
	} {
		if err := shared.RequireNonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	if m.CurrentKwh.LessThan(m.PreviousKwh) {
		return fmt.Errorf("%w: kWh %s < %s", ErrNegativeConsumption, m.CurrentKwh, m.PreviousKwh)
	}
	if m.CurrentKvah.LessThan(m.PreviousKvah) {
		return fmt.Errorf("%w: kVAh %s < %s", ErrNegativeConsumption, m.CurrentKvah, m.PreviousKvah)
	}
	return nil
}

// ComputeBill applies the tariff to m at full precision.
func ComputeBill(m MeterReadings) (BillComponents, error) {
	if err := m.Validate(); err != nil {
		return BillComponents{}, err
	}
	c := BillComponents{
		KwhConsumed:     m.CurrentKwh.Sub(m.PreviousKwh),
		KvahConsumed:    m.CurrentKvah.Sub(m.PreviousKvah),
		CustomerCharges: CustomerCharges,
		PFAdjustment:    decimal.Zero,
	}
	if pf, err := shared.Ratio(c.KwhConsumed, c.KvahConsumed); err == nil {
		c.PowerFactor = decimal.NewNullDecimal(pf)
	}
	c.BillingDemand = decimal.Max(m.ContractDemand.Mul(DemandFloorRatio), m.RMD)
	c.FixedCharges = c.BillingDemand.Mul(DemandChargePerKVA)
	c.EnergyCharges = c.KwhConsumed.Mul(EnergyChargePerKwh)
	c.FuelSurcharge = c.KwhConsumed.Mul(FuelSurchargePerKwh)
	base := c.FixedCharges.Add(c.EnergyCharges)
	c.EDDuty = base.Mul(EDDutyRate)

	if c.PowerFactor.Valid {
		pf := c.PowerFactor.Decimal
		switch {
		case pf.LessThan(TargetPowerFactor):
			c.PFAdjustment = base.Mul(TargetPowerFactor.Sub(pf)).Mul(hundred).Mul(PFPenaltyRate)
		case pf.GreaterThan(TargetPowerFactor):
			c.PFAdjustment = base.Mul(pf.Sub(TargetPowerFactor)).Mul(hundred).Mul(PFRebateRate).Neg()
		}
	}

	c.BillAmount = c.FixedCharges.
		Add(c.EnergyCharges).
		Add(c.FuelSurcharge).
		Add(c.EDDuty).
		Add(c.CustomerCharges).
		Add(c.PFAdjustment)
	return c, nil
}

// ElectricityBill is a persisted monthly bill. BillAmount is always derived;
// ManualAdjustment carries any correction agreed with the utility.
type ElectricityBill struct {
	ID        string      `json:"id"`
	BillMonth string      `json:"billMonth"`
	BillDate  shared.Date `json:"billDate"`
	DueDate   shared.Date `json:"dueDate,omitempty"`
	MeterReadings
	BillComponents
	ManualAdjustment decimal.Decimal `json:"manualAdjustment"`
	PayableAmount    decimal.Decimal `json:"payableAmount"`
	Notes            string          `json:"notes,omitempty"`
}

// ElectricityInput describes a new bill.
type ElectricityInput struct {
	BillMonth        string
	BillDate         shared.Date
	DueDate          shared.Date
	Readings         MeterReadings
	ManualAdjustment decimal.Decimal
	Notes            string
}
