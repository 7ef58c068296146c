package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

// AdminHandler provides staff-facing order management endpoints.
type AdminHandler struct {
	Q   *db.Queries
	Svc *Service
}

type patchStatusRequest struct {
	Status string `json:"status"`
}

// Confirm finalizes a cash-on-delivery order: stock is reserved, the order
// moves to PAID, and the cart is emptied.
func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	ord, err := h.Svc.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var oos *OutOfStockError
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.As(err, &oos):
			common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", oos.Error(), map[string]any{"title": oos.Title})
		case errors.Is(err, ErrInvalidState):
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to confirm order", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":     common.UUIDString(ord.ID),
		"status": ord.Status,
	}})
}

// PatchStatus advances the order through its lifecycle with state-machine
// validation. PAID is never a valid target here; confirmation owns that
// transition.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	oID, err := common.ParsePgUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if req.Status == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status is required", nil)
		return
	}
	target := db.OrderStatus(req.Status)
	if !isAllowedAdminTarget(target) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
		return
	}
	current, err := h.Q.GetOrderStatus(r.Context(), oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if current == db.OrderStatusCanceled {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order is canceled", nil)
		return
	}
	if target != db.OrderStatusCanceled && statusRank(current) >= statusRank(target) {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "cannot transition to equal or previous state", nil)
		return
	}
	rows, err := h.Q.UpdateOrderStatusIfCurrent(r.Context(), db.UpdateOrderStatusIfCurrentParams{
		ID:      oID,
		Status:  target,
		Current: current,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order status", nil)
		return
	}
	if rows == 0 {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order changed concurrently", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isAllowedAdminTarget(status db.OrderStatus) bool {
	switch status {
	case db.OrderStatusProcessing, db.OrderStatusShipped, db.OrderStatusCompleted, db.OrderStatusCanceled:
		return true
	}
	return false
}
