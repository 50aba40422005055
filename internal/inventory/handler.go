package inventory

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockroom/internal/masterdata/locations"
	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
	"github.com/odyssey-erp/stockroom/internal/masterdata/suppliers"
	"github.com/odyssey-erp/stockroom/internal/platform/httpx"
)

// SupplierLister is the slice of the suppliers service the overview needs.
type SupplierLister interface {
	List(ctx context.Context, filters shared.ListFilters) ([]suppliers.Supplier, int, error)
}

// LocationLister is the slice of the locations service the overview needs.
type LocationLister interface {
	List(ctx context.Context, filters shared.ListFilters) ([]locations.Location, int, error)
}

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	suppliers SupplierLister
	locations LocationLister
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, suppliers SupplierLister, locations LocationLister) *Handler {
	return &Handler{logger: logger, service: service, suppliers: suppliers, locations: locations}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.handleOverview)
	r.Get("/transactions", h.handleTransactions)
	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/search", h.handleSearch)
		r.Get("/component/{partNumber}", h.handleComponent)
		r.Post("/update", h.handleUpdate)
	})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	components, err := h.service.Components(ctx)
	if err != nil {
		h.logger.Error("list components failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	all := shared.ListFilters{Limit: shared.MaxLimit}.Normalize()
	supplierList, _, err := h.suppliers.List(ctx, all)
	if err != nil {
		h.logger.Error("list suppliers failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	locationList, _, err := h.locations.List(ctx, all)
	if err != nil {
		h.logger.Error("list locations failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"components": components,
		"suppliers":  supplierList,
		"locations":  locationList,
	})
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.RecentTransactions(r.Context(), 100)
	if err != nil {
		h.logger.Error("list transactions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("search failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, results)
}

func (h *Handler) handleComponent(w http.ResponseWriter, r *http.Request) {
	partNumber := chi.URLParam(r, "partNumber")
	details, err := h.service.Details(r.Context(), partNumber)
	if err != nil {
		h.logger.Warn("component lookup failed", slog.Any("error", err), slog.String("part_number", partNumber))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	recorded, err := h.service.UpdateQuantity(r.Context(), input)
	if err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			httpx.ValidationProblem(w, err)
			return
		}
		h.logger.Warn("inventory update failed", slog.Any("error", err), slog.Int64("component_id", input.ComponentID))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("inventory updated",
		slog.Int64("component_id", recorded.ComponentID),
		slog.String("type", string(recorded.Type)),
		slog.Int("previous", recorded.PreviousQuantity),
		slog.Int("new", recorded.NewQuantity))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "transaction_id": recorded.ID})
}
