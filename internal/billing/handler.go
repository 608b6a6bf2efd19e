package billing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/platform/httpx"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Handler exposes billing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/electricity", h.listBills)
	r.Post("/electricity", h.createBill)
	r.Post("/electricity/preview", h.previewBill)
	r.Delete("/electricity/{id}", h.deleteBill)
	r.Get("/freight", h.listFreights)
	r.Post("/freight", h.createFreight)
	r.Get("/freight/due", h.freightDue)
	r.Post("/freight/{id}/payments", h.addFreightPayment)
}

type billRequest struct {
	BillMonth        string      `json:"billMonth"`
	BillDate         string      `json:"billDate"`
	DueDate          string      `json:"dueDate"`
	PreviousKwh      json.Number `json:"previousKwh"`
	CurrentKwh       json.Number `json:"currentKwh"`
	PreviousKvah     json.Number `json:"previousKvah"`
	CurrentKvah      json.Number `json:"currentKvah"`
	RMD              json.Number `json:"rmd"`
	ContractDemand   json.Number `json:"contractDemand"`
	ManualAdjustment json.Number `json:"manualAdjustment"`
	Notes            string      `json:"notes"`
}

type deductionRequest struct {
	Reason string      `json:"reason"`
	Amount json.Number `json:"amount"`
}

type freightRequest struct {
	LorryNumber  string             `json:"lorryNumber" validate:"required"`
	Transporter  string             `json:"transporter"`
	AckNumber    string             `json:"ackNumber"`
	FreightDate  string             `json:"freightDate" validate:"required"`
	IsBran       bool               `json:"isBran"`
	FreightPerMT json.Number        `json:"freightPerMT"`
	Deductions   []deductionRequest `json:"deductions" validate:"dive"`
	AdvancePaid  json.Number        `json:"advancePaid"`
	Notes        string             `json:"notes"`
}

type freightPaymentRequest struct {
	Amount json.Number `json:"amount"`
	PaidOn string      `json:"paidOn" validate:"required"`
	Mode   string      `json:"mode"`
}

func optionalDate(field, raw string) (shared.Date, error) {
	if raw == "" {
		return shared.Date{}, nil
	}
	return shared.ParseDate(field, raw)
}

func (req billRequest) input() (ElectricityInput, error) {
	input := ElectricityInput{BillMonth: req.BillMonth, Notes: req.Notes}
	var err error
	if input.BillDate, err = optionalDate("billDate", req.BillDate); err != nil {
		return ElectricityInput{}, err
	}
	if input.DueDate, err = optionalDate("dueDate", req.DueDate); err != nil {
		return ElectricityInput{}, err
	}
	m := &input.Readings
	for _, f := range []struct {
		name   string
		raw    json.Number
		target *decimal.Decimal
	}{
		{"previousKwh", req.PreviousKwh, &m.PreviousKwh},
		{"currentKwh", req.CurrentKwh, &m.CurrentKwh},
		{"previousKvah", req.PreviousKvah, &m.PreviousKvah},
		{"currentKvah", req.CurrentKvah, &m.CurrentKvah},
		{"rmd", req.RMD, &m.RMD},
		{"contractDemand", req.ContractDemand, &m.ContractDemand},
	} {
		if *f.target, err = shared.ParseDecimal(f.name, f.raw.String()); err != nil {
			return ElectricityInput{}, err
		}
	}
	if input.ManualAdjustment, err = shared.ParseOptionalDecimal("manualAdjustment", req.ManualAdjustment.String()); err != nil {
		return ElectricityInput{}, err
	}
	return input, nil
}

func (h *Handler) decodeBill(w http.ResponseWriter, r *http.Request) (ElectricityInput, bool) {
	var req billRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return ElectricityInput{}, false
	}
	input, err := req.input()
	if err != nil {
		httpx.RespondError(w, err)
		return ElectricityInput{}, false
	}
	return input, true
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.service.Bills(r.Context())
	if err != nil {
		h.fail(w, "list bills", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bills)
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeBill(w, r)
	if !ok {
		return
	}
	bill, err := h.service.CreateBill(r.Context(), input)
	if err != nil {
		h.fail(w, "create bill", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) previewBill(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeBill(w, r)
	if !ok {
		return
	}
	bill, err := h.service.PreviewBill(input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) deleteBill(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBill(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete bill", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listFreights(w http.ResponseWriter, r *http.Request) {
	freights, err := h.service.Freights(r.Context())
	if err != nil {
		h.fail(w, "list freights", err)
		return
	}
	httpx.JSON(w, http.StatusOK, freights)
}

func (h *Handler) createFreight(w http.ResponseWriter, r *http.Request) {
	var req freightRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := FreightInput{
		LorryNumber: req.LorryNumber,
		Transporter: req.Transporter,
		AckNumber:   req.AckNumber,
		IsBran:      req.IsBran,
		Notes:       req.Notes,
	}
	var err error
	if input.FreightDate, err = shared.ParseDate("freightDate", req.FreightDate); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.FreightPerMT, err = shared.ParseDecimal("freightPerMT", req.FreightPerMT.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.AdvancePaid, err = shared.ParseOptionalDecimal("advancePaid", req.AdvancePaid.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	for i, d := range req.Deductions {
		amount, err := shared.ParseDecimal(fmt.Sprintf("deductions[%d].amount", i), d.Amount.String())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Deductions = append(input.Deductions, Deduction{Reason: d.Reason, Amount: amount})
	}
	freight, err := h.service.CreateFreight(r.Context(), input)
	if err != nil {
		h.fail(w, "create freight", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, freight)
}

func (h *Handler) addFreightPayment(w http.ResponseWriter, r *http.Request) {
	var req freightPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	amount, err := shared.ParseDecimal("amount", req.Amount.String())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	paidOn, err := shared.ParseDate("paidOn", req.PaidOn)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	freight, err := h.service.AddFreightPayment(r.Context(), chi.URLParam(r, "id"), FreightPayment{Amount: amount, PaidOn: paidOn, Mode: req.Mode})
	if err != nil {
		h.fail(w, "add freight payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, freight)
}

type freightDueResponse struct {
	Due     string `json:"due"`
	Display string `json:"display"`
}

func (h *Handler) freightDue(w http.ResponseWriter, r *http.Request) {
	due, err := h.service.FreightDue(r.Context())
	if err != nil {
		h.fail(w, "freight due", err)
		return
	}
	httpx.JSON(w, http.StatusOK, freightDueResponse{Due: due.String(), Display: shared.FormatAmount(due)})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
