package pricing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/colisflow/colisflow/internal/platform/httpx"
	"github.com/colisflow/colisflow/internal/shared"
)

// RepriceDispatcher enqueues a tenant-wide repricing run in the background.
type RepriceDispatcher interface {
	DispatchReprice(ctx context.Context, tenantID uuid.UUID) error
}

// Handler manages pricing rule endpoints.
type Handler struct {
	logger     *slog.Logger
	rules      *CachedRules
	dispatcher RepriceDispatcher
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, rules *CachedRules, dispatcher RepriceDispatcher) *Handler {
	return &Handler{logger: logger, rules: rules, dispatcher: dispatcher}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pricing/rules", h.listRules)
	r.Post("/pricing/reprice", h.reprice)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	tenantID, err := shared.TenantFromRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Tenant Required", err.Error())
		return
	}

	rules, err := h.rules.ListRules(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list pricing rules", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if rules == nil {
		rules = []Rule{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// reprice drops the cached rule set and schedules a background repricing of
// the tenant's shipments. Called after a rule import.
func (h *Handler) reprice(w http.ResponseWriter, r *http.Request) {
	tenantID, err := shared.TenantFromRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Tenant Required", err.Error())
		return
	}

	if err := h.rules.Invalidate(r.Context(), tenantID); err != nil {
		h.logger.Warn("invalidate rules cache", slog.Any("error", err))
	}
	if err := h.dispatcher.DispatchReprice(r.Context(), tenantID); err != nil {
		h.logger.Error("dispatch reprice", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "scheduled"})
}
