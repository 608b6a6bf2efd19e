package fci

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ricemill-erp/ricemill-erp/internal/platform/httpx"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// Handler exposes consignment endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers FCI routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/consignments", h.list)
	r.Post("/consignments", h.create)
	r.Put("/consignments/{id}/status", h.updateStatus)
	r.Put("/consignments/{id}/qc", h.recordQC)
	r.Delete("/consignments/{id}", h.delete)
	r.Get("/capacity", h.capacity)
	r.Get("/productions", h.listProductions)
	r.Post("/productions", h.createProduction)
	r.Get("/dangling", h.dangling)
}

type consignmentRequest struct {
	AckNumber       string `json:"ackNumber" validate:"required"`
	GunnyType       string `json:"gunnyType"`
	ConsignmentDate string `json:"consignmentDate" validate:"required"`
	Notes           string `json:"notes"`
}

type statusRequest struct {
	Status Status `json:"status" validate:"required"`
}

type qcRequest struct {
	FCIWeight          json.Number `json:"fciWeight"`
	FCIMoisture        json.Number `json:"fciMoisture"`
	FCIUnloadingHamali json.Number `json:"fciUnloadingHamali"`
	FCIPassingFee      json.Number `json:"fciPassingFee"`
}

type productionRequest struct {
	AckNumber       string      `json:"ackNumber" validate:"required"`
	ProductionDate  string      `json:"productionDate" validate:"required"`
	PaddyUsedQtl    json.Number `json:"paddyUsedQtl"`
	RiceProducedQtl json.Number `json:"riceProducedQtl"`
	BrokenQtl       json.Number `json:"brokenQtl"`
	BranQtl         json.Number `json:"branQtl"`
	Notes           string      `json:"notes"`
}

type shortageResponse struct {
	httpx.ProblemDetail
	Bags     Requirement `json:"bags"`
	Stickers Requirement `json:"stickers"`
}

type capacityResponse struct {
	Consignments     int64 `json:"consignments"`
	RequiredBags     int   `json:"requiredBags"`
	RequiredStickers int   `json:"requiredStickers"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	consignments, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list consignments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, consignments)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req consignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := shared.ParseDate("consignmentDate", req.ConsignmentDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	consignment, err := h.service.CreateConsignment(r.Context(), ConsignmentInput{
		AckNumber:       req.AckNumber,
		GunnyType:       req.GunnyType,
		ConsignmentDate: date,
		Notes:           req.Notes,
	})
	if err != nil {
		var shortage *InsufficientStockError
		if errors.As(err, &shortage) {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(shortageResponse{
				ProblemDetail: httpx.ProblemDetail{Title: "Insufficient Stock", Status: http.StatusConflict, Detail: shortage.Error()},
				Bags:          shortage.Bags,
				Stickers:      shortage.Stickers,
			})
			return
		}
		h.fail(w, "create consignment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, consignment)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	consignment, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, "update consignment status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, consignment)
}

func optionalDecimal(field string, n json.Number) (*decimal.Decimal, error) {
	if n.String() == "" {
		return nil, nil
	}
	d, err := shared.ParseDecimal(field, n.String())
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *Handler) recordQC(w http.ResponseWriter, r *http.Request) {
	var req qcRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input QCInput
	var err error
	if input.Weight, err = optionalDecimal("fciWeight", req.FCIWeight); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.Moisture, err = optionalDecimal("fciMoisture", req.FCIMoisture); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.UnloadingHamali, err = optionalDecimal("fciUnloadingHamali", req.FCIUnloadingHamali); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.PassingFee, err = optionalDecimal("fciPassingFee", req.FCIPassingFee); err != nil {
		httpx.RespondError(w, err)
		return
	}
	consignment, err := h.service.RecordQC(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "record qc", err)
		return
	}
	httpx.JSON(w, http.StatusOK, consignment)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete consignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) capacity(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Capacity(r.Context())
	if err != nil {
		h.fail(w, "consignment capacity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, capacityResponse{Consignments: n, RequiredBags: RequiredBags, RequiredStickers: RequiredStickers})
}

func (h *Handler) listProductions(w http.ResponseWriter, r *http.Request) {
	productions, err := h.service.Productions(r.Context())
	if err != nil {
		h.fail(w, "list productions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, productions)
}

func (h *Handler) createProduction(w http.ResponseWriter, r *http.Request) {
	var req productionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := shared.ParseDate("productionDate", req.ProductionDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := RiceProduction{AckNumber: req.AckNumber, ProductionDate: date, Notes: req.Notes}
	if p.PaddyUsedQtl, err = shared.ParseDecimal("paddyUsedQtl", req.PaddyUsedQtl.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if p.RiceProducedQtl, err = shared.ParseDecimal("riceProducedQtl", req.RiceProducedQtl.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if p.BrokenQtl, err = shared.ParseOptionalDecimal("brokenQtl", req.BrokenQtl.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if p.BranQtl, err = shared.ParseOptionalDecimal("branQtl", req.BranQtl.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateProduction(r.Context(), p)
	if err != nil {
		h.fail(w, "create production", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) dangling(w http.ResponseWriter, r *http.Request) {
	consignments, err := h.service.Dangling(r.Context())
	if err != nil {
		h.fail(w, "dangling consignments", err)
		return
	}
	if consignments == nil {
		consignments = []Consignment{}
	}
	httpx.JSON(w, http.StatusOK, consignments)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
