package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ricemill-erp/ricemill-erp/internal/platform/httpx"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Handler exposes ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.listSales)
	r.Post("/sales", h.createSale)
	r.Delete("/sales/{id}", h.deleteSale)
	r.Get("/sales/{id}/payments", h.listPayments)
	r.Post("/sales/{id}/payments", h.recordPayment)
	r.Get("/expenses", h.listExpenses)
	r.Post("/expenses", h.createExpense)
	r.Delete("/expenses/{id}", h.deleteExpense)
	r.Post("/expenses/{id}/payments", h.payExpense)
	r.Get("/payroll/{kind}", h.listPayroll)
	r.Post("/payroll/{kind}", h.createPayroll)
	r.Post("/payroll/{kind}/{id}/payments", h.payPayroll)
	r.Get("/outstanding", h.outstanding)
}

type lineRequest struct {
	Product    string      `json:"product" validate:"required"`
	Quantity   json.Number `json:"quantity"`
	Rate       json.Number `json:"rate"`
	GSTPercent json.Number `json:"gstPercent"`
}

type saleRequest struct {
	InvoiceNo    string        `json:"invoiceNo"`
	CustomerName string        `json:"customerName" validate:"required"`
	InvoiceDate  string        `json:"invoiceDate" validate:"required"`
	TermDays     *int          `json:"termDays" validate:"omitempty,min=0"`
	Items        []lineRequest `json:"items" validate:"required,min=1,dive"`
	Notes        string        `json:"notes"`
}

type paymentRequest struct {
	Amount json.Number `json:"amount"`
	PaidOn string      `json:"paidOn" validate:"required"`
	Mode   string      `json:"mode"`
	Notes  string      `json:"notes"`
}

type expenseRequest struct {
	Category    string      `json:"category" validate:"required"`
	Vendor      string      `json:"vendor"`
	Description string      `json:"description"`
	ExpenseDate string      `json:"expenseDate" validate:"required"`
	DueDate     string      `json:"dueDate"`
	Amount      json.Number `json:"amount"`
	PaidAmount  json.Number `json:"paidAmount"`
}

type payrollRequest struct {
	Worker   string      `json:"worker" validate:"required"`
	WorkDate string      `json:"workDate" validate:"required"`
	Quantity json.Number `json:"quantity"`
	Rate     json.Number `json:"rate"`
	Notes    string      `json:"notes"`
}

type salePaymentResponse struct {
	Sale    Sale    `json:"sale"`
	Payment Payment `json:"payment"`
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.Sales(r.Context())
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (req saleRequest) input() (SaleInput, error) {
	date, err := shared.ParseDate("invoiceDate", req.InvoiceDate)
	if err != nil {
		return SaleInput{}, err
	}
	input := SaleInput{
		InvoiceNo:    req.InvoiceNo,
		CustomerName: req.CustomerName,
		InvoiceDate:  date,
		TermDays:     req.TermDays,
		Notes:        req.Notes,
	}
	for i, item := range req.Items {
		line := LineInput{Product: item.Product}
		if line.Quantity, err = shared.ParseDecimal(fmt.Sprintf("items[%d].quantity", i), item.Quantity.String()); err != nil {
			return SaleInput{}, err
		}
		if line.Rate, err = shared.ParseDecimal(fmt.Sprintf("items[%d].rate", i), item.Rate.String()); err != nil {
			return SaleInput{}, err
		}
		if line.GSTPercent, err = shared.ParseOptionalDecimal(fmt.Sprintf("items[%d].gstPercent", i), item.GSTPercent.String()); err != nil {
			return SaleInput{}, err
		}
		input.Items = append(input.Items, line)
	}
	return input, nil
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.input()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		h.fail(w, "create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSale(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete sale", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.Payments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "list payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (req paymentRequest) input() (PaymentInput, error) {
	amount, err := shared.ParseDecimal("amount", req.Amount.String())
	if err != nil {
		return PaymentInput{}, err
	}
	paidOn, err := shared.ParseDate("paidOn", req.PaidOn)
	if err != nil {
		return PaymentInput{}, err
	}
	return PaymentInput{Amount: amount, PaidOn: paidOn, Mode: req.Mode, Notes: req.Notes}, nil
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.input()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, payment, err := h.service.RecordPayment(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, salePaymentResponse{Sale: sale, Payment: payment})
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.Expenses(r.Context())
	if err != nil {
		h.fail(w, "list expenses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, expenses)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := ExpenseInput{Category: req.Category, Vendor: req.Vendor, Description: req.Description}
	var err error
	if input.ExpenseDate, err = shared.ParseDate("expenseDate", req.ExpenseDate); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.DueDate != "" {
		if input.DueDate, err = shared.ParseDate("dueDate", req.DueDate); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if input.Amount, err = shared.ParseDecimal("amount", req.Amount.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.PaidAmount, err = shared.ParseOptionalDecimal("paidAmount", req.PaidAmount.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.CreateExpense(r.Context(), input)
	if err != nil {
		h.fail(w, "create expense", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) payExpense(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.input()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.PayExpense(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "pay expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) kind(w http.ResponseWriter, r *http.Request) (PayrollKind, bool) {
	kind, err := ParsePayrollKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err)
		return "", false
	}
	return kind, true
}

func (h *Handler) listPayroll(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Payroll(r.Context(), kind)
	if err != nil {
		h.fail(w, "list payroll", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) createPayroll(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	var req payrollRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := PayrollInput{Worker: req.Worker, Notes: req.Notes}
	var err error
	if input.WorkDate, err = shared.ParseDate("workDate", req.WorkDate); err != nil {
		httpx.RespondError(w, err)
		return
	}
	parseQty := shared.ParseDecimal
	if kind == PayrollSupervisorSalary {
		parseQty = shared.ParseOptionalDecimal
	}
	if input.Quantity, err = parseQty("quantity", req.Quantity.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.Rate, err = shared.ParseDecimal("rate", req.Rate.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.CreatePayroll(r.Context(), kind, input)
	if err != nil {
		h.fail(w, "create payroll", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) payPayroll(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.input()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.PayPayroll(r.Context(), kind, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "pay payroll", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

type outstandingResponse struct {
	Outstanding
	Display map[string]string `json:"display"`
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	asOf := shared.Today()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := shared.ParseDate("asOf", raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		asOf = parsed
	}
	report, err := h.service.Outstanding(r.Context(), asOf)
	if err != nil {
		h.fail(w, "outstanding", err)
		return
	}
	httpx.JSON(w, http.StatusOK, outstandingResponse{
		Outstanding: report,
		Display: map[string]string{
			"receivables": shared.FormatAmount(report.Receivables),
			"payables":    shared.FormatAmount(report.Payables),
			"freightDues": shared.FormatAmount(report.FreightDues),
			"net":         shared.FormatAmount(report.Receivables.Sub(report.Payables).Sub(report.FreightDues)),
		},
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
