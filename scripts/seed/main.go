package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/app"
	"github.com/ricemill-erp/ricemill-erp/internal/billing"
	"github.com/ricemill-erp/ricemill-erp/internal/fci"
	"github.com/ricemill-erp/ricemill-erp/internal/inventory"
	"github.com/ricemill-erp/ricemill-erp/internal/ledger"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	svcs, err := app.OpenServices(ctx, cfg, logger, nil)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	fmt.Println("→ Seeding stock...")
	if err := seedStock(ctx, svcs); err != nil {
		log.Fatalf("seed stock: %v", err)
	}
	fmt.Println("→ Seeding FCI...")
	if err := seedFCI(ctx, svcs); err != nil {
		log.Fatalf("seed fci: %v", err)
	}
	fmt.Println("→ Seeding ledger...")
	if err := seedLedger(ctx, svcs); err != nil {
		log.Fatalf("seed ledger: %v", err)
	}
	fmt.Println("→ Seeding billing...")
	if err := seedBilling(ctx, svcs); err != nil {
		log.Fatalf("seed billing: %v", err)
	}
	fmt.Println("✓ Seed complete")
}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seedStock(ctx context.Context, svcs *app.Services) error {
	lots := []struct {
		material inventory.Material
		quantity int64
		date     string
		source   string
	}{
		{inventory.MaterialGunny, 500, "2024-01-02", "old"},
		{inventory.MaterialGunny, 1000, "2024-01-15", "new"},
		{inventory.MaterialRexinSticker, 1200, "2024-01-03", ""},
		{inventory.MaterialFRK, 900, "2024-01-04", ""},
	}
	for _, lot := range lots {
		if _, err := svcs.Inventory.Receive(ctx, lot.material, inventory.ReceiptInput{
			Quantity:     qty(lot.quantity),
			DateReceived: shared.MustDate(lot.date),
			SourceTag:    lot.source,
		}); err != nil {
			return err
		}
	}
	return nil
}

func seedFCI(ctx context.Context, svcs *app.Services) error {
	if _, err := svcs.FCI.CreateProduction(ctx, fci.RiceProduction{
		AckNumber:       "ACK-2024-001",
		ProductionDate:  shared.MustDate("2024-01-18"),
		PaddyUsedQtl:    qty(435),
		RiceProducedQtl: qty(290),
		BrokenQtl:       qty(22),
		BranQtl:         qty(35),
	}); err != nil {
		return err
	}
	_, err := svcs.FCI.CreateConsignment(ctx, fci.ConsignmentInput{
		AckNumber:       "ACK-2024-001",
		GunnyType:       "new",
		ConsignmentDate: shared.MustDate("2024-01-20"),
	})
	return err
}

func seedLedger(ctx context.Context, svcs *app.Services) error {
	sale, err := svcs.Ledger.CreateSale(ctx, ledger.SaleInput{
		InvoiceNo:    "INV-0001",
		CustomerName: "Sri Lakshmi Traders",
		InvoiceDate:  shared.MustDate("2024-02-01"),
		Items: []ledger.LineInput{
			{Product: "Broken rice", Quantity: qty(20), Rate: qty(2400), GSTPercent: qty(5)},
			{Product: "Rice bran", Quantity: qty(10), Rate: qty(1800), GSTPercent: qty(5)},
		},
	})
	if err != nil {
		return err
	}
	if _, _, err := svcs.Ledger.RecordPayment(ctx, sale.ID, ledger.PaymentInput{
		Amount: qty(20000),
		PaidOn: shared.MustDate("2024-02-10"),
		Mode:   "bank",
	}); err != nil {
		return err
	}
	if _, err := svcs.Ledger.CreateExpense(ctx, ledger.ExpenseInput{
		Category:    "maintenance",
		Vendor:      "Krishna Engineering",
		Description: "Huller rubber rolls",
		ExpenseDate: shared.MustDate("2024-02-05"),
		Amount:      qty(6000),
	}); err != nil {
		return err
	}
	_, err = svcs.Ledger.CreatePayroll(ctx, ledger.PayrollHamali, ledger.PayrollInput{
		Worker:   "Loading gang A",
		WorkDate: shared.MustDate("2024-01-20"),
		Quantity: qty(580),
		Rate:     decimal.RequireFromString("3.5"),
	})
	return err
}

func seedBilling(ctx context.Context, svcs *app.Services) error {
	if _, err := svcs.Billing.CreateFreight(ctx, billing.FreightInput{
		LorryNumber:  "AP29TB4455",
		Transporter:  "Venkata Roadlines",
		AckNumber:    "ACK-2024-001",
		FreightDate:  shared.MustDate("2024-01-20"),
		FreightPerMT: qty(1500),
		Deductions:   []billing.Deduction{{Reason: "shortage", Amount: qty(2000)}},
		AdvancePaid:  qty(50000),
	}); err != nil {
		return err
	}
	_, err := svcs.Billing.CreateBill(ctx, billing.ElectricityInput{
		BillMonth: "2024-01",
		BillDate:  shared.MustDate("2024-02-03"),
		DueDate:   shared.MustDate("2024-02-17"),
		Readings: billing.MeterReadings{
			PreviousKwh:    qty(120000),
			CurrentKwh:     qty(128000),
			PreviousKvah:   qty(130000),
			CurrentKvah:    qty(138500),
			RMD:            qty(95),
			ContractDemand: qty(100),
		},
	})
	return err
}
