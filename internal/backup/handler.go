package backup

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ricemill-erp/ricemill-erp/internal/platform/httpx"
	"github.com/ricemill-erp/ricemill-erp/internal/shared"
)

// maxImportBytes bounds an import upload.
const maxImportBytes = 32 << 20

// Handler exposes export and import.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers backup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/export", h.export)
	r.Post("/import", h.importDocument)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Export(r.Context())
	if err != nil {
		h.logger.Error("export backup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	name := fmt.Sprintf("ricemill-backup-%s.json", doc.ExportDate.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) importDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("backup: read body: %v: %w", err, shared.ErrValidation))
		return
	}
	result, err := h.service.Import(r.Context(), data)
	if err != nil {
		if IsPartial(err) {
			httpx.JSON(w, http.StatusMultiStatus, result)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
