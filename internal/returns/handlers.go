package returns

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

type Handler struct {
	Svc *Service
}

// Create opens a return request for one of the caller's orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "returns service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	ret, err := h.Svc.Create(r.Context(), userID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": returnView(ret)})
}

// ListMine pages the caller's return history.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "returns service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	rets, err := h.Svc.ListForUser(r.Context(), userID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": returnViews(rets)})
}

// Queue pages the staff review queue, optionally filtered by ?status=.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "returns service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	rets, err := h.Svc.ListQueue(r.Context(), r.URL.Query().Get("status"), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": returnViews(rets)})
}

// Decide applies a staff decision to a return request.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "returns service not configured", nil)
		return
	}
	staffID, ok := common.UserID(r.Context())
	if !ok || staffID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload DecideInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	ret, err := h.Svc.Decide(r.Context(), staffID, chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": returnView(ret)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "return not found", nil)
	case errors.Is(err, ErrOpenReturnExists):
		common.JSONError(w, http.StatusConflict, "RETURN_EXISTS", "order already has an open return", nil)
	case errors.Is(err, ErrOrderNotEligible):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOT_ELIGIBLE", err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "return operation failed", nil)
	}
}

func returnViews(rets []db.ReturnRequest) []map[string]any {
	out := make([]map[string]any, 0, len(rets))
	for _, ret := range rets {
		out = append(out, returnView(ret))
	}
	return out
}

func returnView(ret db.ReturnRequest) map[string]any {
	return map[string]any{
		"id":           common.UUIDString(ret.ID),
		"returnNumber": ret.ReturnNumber,
		"orderId":      common.UUIDString(ret.OrderID),
		"returnType":   ret.ReturnType,
		"reason":       ret.Reason,
		"description":  textOrNil(ret.Description),
		"status":       ret.Status,
		"adminNote":    textOrNil(ret.AdminNote),
		"refundAmount": ret.RefundAmount,
		"createdAt":    ret.CreatedAt,
		"approvedAt":   timeOrNil(ret.ApprovedAt),
		"completedAt":  timeOrNil(ret.CompletedAt),
	}
}

func textOrNil(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func timeOrNil(t pgtype.Timestamptz) any {
	if !t.Valid {
		return nil
	}
	return t.Time
}
