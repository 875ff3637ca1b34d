package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/colisflow/colisflow/internal/invoices/export"
	"github.com/colisflow/colisflow/internal/observability"
	"github.com/colisflow/colisflow/internal/platform/httpx"
	"github.com/colisflow/colisflow/internal/shared"
)

// Handler manages invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), metrics: metrics}
}

// MountRoutes registers invoice routes. Exports are rate limited because they
// stream files and are occasionally hammered by accounting tools.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/generate", h.generate)
	r.Get("/invoices", h.list)
	r.Get("/invoices/{id}", h.get)
	r.Patch("/invoices/{id}/status", h.updateStatus)
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		gr.Get("/invoices/{id}/export", h.exportInvoice)
	})
}

type generateResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Invoice *GenerateResult `json:"invoice,omitempty"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := shared.TenantFromRequest(r)
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, generateResponse{Message: "Tenant requis"})
		return
	}

	var input GenerateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSON(w, http.StatusBadRequest, generateResponse{Message: "Requête invalide"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.JSON(w, http.StatusBadRequest, generateResponse{Message: "Requête invalide"})
		return
	}

	result, err := h.service.Generate(r.Context(), tenantID, input)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidMonth) {
			httpx.JSON(w, http.StatusBadRequest, generateResponse{Message: "Format mois invalide (YYYY-MM)"})
			return
		}
		h.logger.Error("generate invoice", slog.Any("error", err), slog.String("tenant_id", tenantID.String()))
		httpx.JSON(w, http.StatusInternalServerError, generateResponse{Message: "Erreur serveur"})
		return
	}

	if h.metrics != nil {
		h.metrics.InvoiceGenerated()
	}
	httpx.JSON(w, http.StatusOK, generateResponse{Success: true, Invoice: &result})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, err := shared.TenantFromRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Tenant Required", err.Error())
		return
	}

	out, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := shared.TenantFromRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Tenant Required", err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Invoice ID", "invoice id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
			return
		}
		h.logger.Error("get invoice", slog.Any("error", err), slog.String("id", id.String()))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}

	if err := h.service.UpdateStatus(r.Context(), tenantID, id, Status(req.Status)); err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			httpx.Problem(w, http.StatusBadRequest, "Invalid Status", "status must be draft, sent or paid")
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
		default:
			h.logger.Error("update invoice status", slog.Any("error", err), slog.String("id", id.String()))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

func (h *Handler) exportInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "fec"
	}
	if format != "fec" && format != "sage" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Format", `format must be "fec" or "sage"`)
		return
	}

	data, err := h.service.BuildExport(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
			return
		}
		h.logger.Error("build export", slog.Any("error", err), slog.String("id", id.String()))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	var content, filename, contentType string
	if format == "fec" {
		entries := export.FECEntries(data.Snapshot)
		content = export.FECFile(entries)
		filename = export.FECFilename(data.Siren, data.Snapshot.CreatedAt)
		contentType = "text/plain; charset=utf-8"
	} else {
		entries := export.SageEntries(data.Snapshot)
		if report := export.ValidateSageBalance(entries); !report.Valid {
			// Persisted totals disagree with the line set. Data bug, not a
			// user error; refuse to hand out an unbalanced ledger.
			h.logger.Error("sage export unbalanced",
				slog.String("invoice", data.Snapshot.InvoiceNumber),
				slog.Float64("difference", report.Difference),
			)
			httpx.Problem(w, http.StatusInternalServerError, "Unbalanced Ledger", "")
			return
		}
		content = export.SageCSV(entries)
		filename = export.SageFilename(data.Snapshot.Month)
		contentType = "text/csv; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(content))
}
