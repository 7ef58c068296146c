package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/obs"
)

type couponPayload struct {
	Code                string    `json:"code" validate:"required,min=2,max=64"`
	Description         string    `json:"description"`
	DiscountPercent     int32     `json:"discountPercent" validate:"required,gte=1,lte=70"`
	MaxDiscountAmount   int64     `json:"maxDiscountAmount" validate:"gte=0"`
	MinPurchaseAmount   int64     `json:"minPurchaseAmount" validate:"gte=0"`
	MaxUsageCount       int32     `json:"maxUsageCount" validate:"gte=0"`
	MaxUsagePerCustomer *int32    `json:"maxUsagePerCustomer" validate:"omitempty,gte=0"`
	AppliesTo           string    `json:"appliesTo" validate:"omitempty,oneof=ALL CATEGORY"`
	CategoryIDs         []string  `json:"categoryIds"`
	ValidFrom           time.Time `json:"validFrom" validate:"required"`
	ValidTo             time.Time `json:"validTo" validate:"required,gtfield=ValidFrom"`
	Active              *bool     `json:"active"`
}

type previewRequest struct {
	Code  string               `json:"code"`
	Items []previewRequestItem `json:"items"`
}

type previewRequestItem struct {
	CategoryID string `json:"categoryId"`
	Subtotal   int64  `json:"subtotal"`
}

type couponView struct {
	Code                string    `json:"code"`
	Description         string    `json:"description,omitempty"`
	DiscountPercent     int32     `json:"discount_percent"`
	MaxDiscountAmount   int64     `json:"max_discount_amount"`
	MinPurchaseAmount   int64     `json:"min_purchase_amount"`
	MaxUsageCount       int32     `json:"max_usage_count"`
	MaxUsagePerCustomer int32     `json:"max_usage_per_customer"`
	AppliesTo           string    `json:"applies_to"`
	CategoryIDs         []string  `json:"category_ids,omitempty"`
	ValidFrom           time.Time `json:"valid_from"`
	ValidTo             time.Time `json:"valid_to"`
	Active              bool      `json:"active"`
	Status              string    `json:"status"`
}

// Handler exposes coupon preview plus staff management endpoints.
type Handler struct {
	Q        *db.Queries
	Svc      *Service
	Validate *validator.Validate
	Now      func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Create inserts a new coupon.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	params, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	model, err := h.Q.CreateCoupon(r.Context(), params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.view(model)})
}

// Update replaces a coupon identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	params, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	params.Code = code
	model, err := h.Q.UpdateCoupon(r.Context(), db.UpdateCouponParams(params))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(model)})
}

// Delete removes a coupon by code.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	if err := h.Q.DeleteCoupon(r.Context(), code); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"code": strings.ToUpper(code)}})
}

// List returns all coupons with their derived status for the staff dashboard.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	coupons, err := h.Q.ListCoupons(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	views := make([]couponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, h.view(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// UsageStats returns per-coupon redemption aggregates for the staff dashboard.
func (h *Handler) UsageStats(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	stats, err := h.Q.GetCouponUsageStats(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load usage stats", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}

// Available lists coupons the caller can still redeem. Customers use this to
// browse codes that are live now or opening soon; exhausted codes stay hidden.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	userID := pgtype.UUID{}
	if id, ok := common.UserID(r.Context()); ok {
		if parsed, err := common.ParsePgUUID(id); err == nil {
			userID = parsed
		}
	}
	coupons, err := h.Svc.Available(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	views := make([]couponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, h.view(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// Preview evaluates a coupon against caller-supplied items without touching
// any cart or ledger state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	items, err := toEngineItems(req.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	userID := pgtype.UUID{}
	if id, ok := common.UserID(r.Context()); ok {
		if parsed, err := common.ParsePgUUID(id); err == nil {
			userID = parsed
		}
	}
	result, err := h.Svc.Evaluate(r.Context(), req.Code, userID, items)
	if err != nil {
		writeEvaluationError(w, err)
		return
	}
	obs.ObserveCouponEvaluation("accepted")
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// writeEvaluationError renders rejections with their stable reason code so
// clients can show per-reason messaging.
func writeEvaluationError(w http.ResponseWriter, err error) {
	if reason := ReasonCode(err); reason != "" {
		obs.ObserveCouponEvaluation(reason)
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_REJECTED", err.Error(),
			map[string]string{"reason": reason})
		return
	}
	if errors.Is(err, ErrUnknownCode) {
		obs.ObserveCouponEvaluation("unknown_code")
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon code unknown", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon evaluation failed", nil)
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (db.CreateCouponParams, bool) {
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return db.CreateCouponParams{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return db.CreateCouponParams{}, false
		}
	}
	params, err := buildCouponParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return db.CreateCouponParams{}, false
	}
	return params, true
}

func buildCouponParams(payload couponPayload) (db.CreateCouponParams, error) {
	scope := db.CouponScopeAll
	if strings.EqualFold(payload.AppliesTo, string(db.CouponScopeCategory)) {
		scope = db.CouponScopeCategory
	}
	categoryIDs, err := toUUIDArray(payload.CategoryIDs)
	if err != nil {
		return db.CreateCouponParams{}, err
	}
	if scope == db.CouponScopeCategory && len(categoryIDs) == 0 {
		return db.CreateCouponParams{}, errors.New("categoryIds are required for CATEGORY scope")
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	// Omitting the per-customer cap means one redemption per customer, not
	// unlimited; unlimited must be asked for explicitly with 0.
	perCustomerCap := int32(1)
	if payload.MaxUsagePerCustomer != nil {
		perCustomerCap = *payload.MaxUsagePerCustomer
	}
	return db.CreateCouponParams{
		Code:                strings.TrimSpace(payload.Code),
		Description:         common.PgText(strings.TrimSpace(payload.Description)),
		DiscountPercent:     payload.DiscountPercent,
		MaxDiscountAmount:   payload.MaxDiscountAmount,
		MinPurchaseAmount:   payload.MinPurchaseAmount,
		MaxUsageCount:       payload.MaxUsageCount,
		MaxUsagePerCustomer: perCustomerCap,
		AppliesTo:           scope,
		CategoryIds:         categoryIDs,
		ValidFrom:           common.PgTime(payload.ValidFrom),
		ValidTo:             common.PgTime(payload.ValidTo),
		Active:              active,
	}, nil
}

func (h *Handler) view(c db.Coupon) couponView {
	v := couponView{
		Code:                c.Code,
		Description:         c.Description.String,
		DiscountPercent:     c.DiscountPercent,
		MaxDiscountAmount:   c.MaxDiscountAmount,
		MinPurchaseAmount:   c.MinPurchaseAmount,
		MaxUsageCount:       c.MaxUsageCount,
		MaxUsagePerCustomer: c.MaxUsagePerCustomer,
		AppliesTo:           string(c.AppliesTo),
		ValidFrom:           c.ValidFrom.Time,
		ValidTo:             c.ValidTo.Time,
		Active:              c.Active,
		Status:              string(RuleFromModel(c).Status(h.now())),
	}
	for _, id := range c.CategoryIds {
		v.CategoryIDs = append(v.CategoryIDs, common.UUIDString(id))
	}
	return v
}

func toUUIDArray(values []string) ([]pgtype.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]pgtype.UUID, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := common.ParsePgUUID(trimmed)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func toEngineItems(items []previewRequestItem) ([]Item, error) {
	if len(items) == 0 {
		return nil, errors.New("items are required for preview")
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Subtotal <= 0 {
			continue
		}
		item := Item{Subtotal: it.Subtotal}
		if strings.TrimSpace(it.CategoryID) != "" {
			parsed, err := uuid.Parse(strings.TrimSpace(it.CategoryID))
			if err != nil {
				return nil, err
			}
			item.CategoryID = parsed
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, errors.New("no valid items provided")
	}
	return out, nil
}
