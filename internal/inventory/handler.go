package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ricemill-erp/ricemill-erp/internal/platform/httpx"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/gunny/dispatches", h.handleDispatch)
	r.Route("/{material}", func(r chi.Router) {
		r.Get("/batches", h.listBatches)
		r.Post("/batches", h.receive)
		r.Delete("/batches/{id}", h.deleteBatch)
		r.Get("/available", h.available)
		r.Post("/consumptions", h.consume)
		r.Post("/reconciliations", h.reconcile)
	})
}

type receiptRequest struct {
	Quantity     json.Number `json:"quantity"`
	DateReceived string      `json:"dateReceived" validate:"required"`
	SourceTag    string      `json:"sourceTag"`
	Notes        string      `json:"notes"`
}

type dispatchRequest struct {
	Quantity     json.Number `json:"quantity"`
	Party        string      `json:"party" validate:"required"`
	DispatchDate string      `json:"dispatchDate" validate:"required"`
	Notes        string      `json:"notes"`
}

type consumeRequest struct {
	Quantity json.Number `json:"quantity"`
}

type reconcileRequest struct {
	Physical  json.Number `json:"physical"`
	CountedOn string      `json:"countedOn" validate:"required"`
	Notes     string      `json:"notes"`
}

type availableResponse struct {
	Material  Material `json:"material"`
	Available string   `json:"available"`
	Totals    Totals   `json:"totals"`
}

func (h *Handler) material(w http.ResponseWriter, r *http.Request) (Material, bool) {
	m, err := ParseMaterial(chi.URLParam(r, "material"))
	if err != nil {
		httpx.RespondError(w, err)
		return "", false
	}
	return m, true
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	m, ok := h.material(w, r)
	if !ok {
		return
	}
	batches, err := h.service.Batches(r.Context(), m)
	if err != nil {
		h.fail(w, "list batches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	m, ok := h.material(w, r)
	if !ok {
		return
	}
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	qty, err := shared.ParseDecimal("quantity", req.Quantity.String())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := shared.ParseDate("dateReceived", req.DateReceived)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	batch, err := h.service.Receive(r.Context(), m, ReceiptInput{Quantity: qty, DateReceived: date, SourceTag: req.SourceTag, Notes: req.Notes})
	if err != nil {
		h.fail(w, "receive stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

func (h *Handler) deleteBatch(w http.ResponseWriter, r *http.Request) {
	m, ok := h.material(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBatch(r.Context(), m, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete batch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	m, ok := h.material(w, r)
	if !ok {
		return
	}
	totals, err := h.service.Summary(r.Context(), m)
	if err != nil {
		h.fail(w, "stock summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, availableResponse{Material: m, Available: shared.FormatQuantity(totals.Remaining), Totals: totals})
}

func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	m, ok := h.material(w, r)
	if !ok {
		return
	}
	var req consumeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	qty, err := shared.ParseDecimal("quantity", req.Quantity.String())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	consumption, err := h.service.Consume(r.Context(), m, qty)
	if err != nil {
		h.fail(w, "consume stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, consumption)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	m, ok := h.material(w, r)
	if !ok {
		return
	}
	var req reconcileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	physical, err := shared.ParseDecimal("physical", req.Physical.String())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	countedOn, err := shared.ParseDate("countedOn", req.CountedOn)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Reconcile(r.Context(), m, ReconcileInput{Physical: physical, CountedOn: countedOn, Notes: req.Notes})
	if err != nil {
		h.fail(w, "reconcile stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	qty, err := shared.ParseDecimal("quantity", req.Quantity.String())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := shared.ParseDate("dispatchDate", req.DispatchDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dispatch, err := h.service.Dispatch(r.Context(), DispatchInput{Quantity: qty, Party: req.Party, DispatchDate: date, Notes: req.Notes})
	if err != nil {
		h.fail(w, "dispatch gunny", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dispatch)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
