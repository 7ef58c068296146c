package reports

import (
	"net/http"
	"time"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
)

// Handler exposes the staff reporting endpoints.
type Handler struct {
	Svc *Service
}

func (h *Handler) window(r *http.Request) (time.Time, time.Time, bool) {
	query := r.URL.Query()
	fromStr := query.Get("from")
	toStr := query.Get("to")
	now := h.Svc.now()
	if fromStr != "" && toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		return from, to, from.Before(to)
	}
	days := h.Svc.DefaultRange
	if days <= 0 {
		days = 30
	}
	if raw := query.Get("days"); raw != "" {
		if parsed := common.AtoiDefault(raw, days); parsed > 0 {
			days = parsed
		}
	}
	return now.AddDate(0, 0, -days), now, true
}

// DailySales returns aggregated sales totals for the requested window.
func (h *Handler) DailySales(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_NOT_CONFIGURED", "reports service not configured", nil)
		return
	}
	from, to, ok := h.window(r)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid report window", nil)
		return
	}
	rows, err := h.Svc.DailySales(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_ERROR", err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"day":        row.Day.Time.Format("2006-01-02"),
			"orderCount": row.OrderCount,
			"grossTotal": row.GrossTotal,
			"discount":   row.Discount,
			"tax":        row.Tax,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// TopProducts returns the best sellers for the requested window.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_NOT_CONFIGURED", "reports service not configured", nil)
		return
	}
	from, to, ok := h.window(r)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid report window", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := h.Svc.TopProducts(r.Context(), from, to, int32(limit))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_ERROR", err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := map[string]any{
			"title":     row.Title,
			"unitsSold": row.UnitsSold,
			"revenue":   row.Revenue,
		}
		if row.ProductID.Valid {
			item["productId"] = common.UUIDString(row.ProductID)
		}
		out = append(out, item)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
