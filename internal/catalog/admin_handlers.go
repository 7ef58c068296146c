package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

// AdminHandler exposes staff-facing catalog management endpoints.
type AdminHandler struct {
	Q        *db.Queries
	Svc      *Service
	Validate *validator.Validate
}

type categoryPayload struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
	Slug string `json:"slug" validate:"required,min=2,max=120"`
}

type productPayload struct {
	CategoryID  string `json:"categoryId" validate:"required,uuid4"`
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Slug        string `json:"slug" validate:"required,min=2,max=200"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
	IsAvailable bool   `json:"isAvailable"`
}

type variantPayload struct {
	Color string `json:"color" validate:"required,max=60"`
	Size  string `json:"size" validate:"required,max=30"`
	Stock int32  `json:"stock" validate:"gte=0"`
}

type stockPayload struct {
	Stock int32 `json:"stock" validate:"gte=0"`
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	cat, err := h.Q.CreateCategory(r.Context(), db.CreateCategoryParams{Name: payload.Name, Slug: payload.Slug})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": cat})
}

// UpdateCategory handles PUT /api/v1/admin/categories/{id}.
func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParsePgUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	cat, err := h.Q.UpdateCategory(r.Context(), db.UpdateCategoryParams{ID: id, Name: payload.Name, Slug: payload.Slug})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cat})
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParsePgUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	if err := h.Q.DeleteCategory(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if !h.decode(w, r, &payload) {
		return
	}
	categoryID, err := common.ParsePgUUID(payload.CategoryID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	product, err := h.Q.CreateProduct(r.Context(), db.CreateProductParams{
		CategoryID:  categoryID,
		Title:       payload.Title,
		Slug:        payload.Slug,
		Description: common.PgText(payload.Description),
		Price:       payload.Price,
		IsAvailable: payload.IsAvailable,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": product})
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParsePgUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload productPayload
	if !h.decode(w, r, &payload) {
		return
	}
	categoryID, err := common.ParsePgUUID(payload.CategoryID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	product, err := h.Q.UpdateProduct(r.Context(), db.UpdateProductParams{
		ID:          id,
		CategoryID:  categoryID,
		Title:       payload.Title,
		Slug:        payload.Slug,
		Description: common.PgText(payload.Description),
		Price:       payload.Price,
		IsAvailable: payload.IsAvailable,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Svc != nil {
		h.Svc.InvalidateProduct(r.Context(), product.Slug)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParsePgUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	product, err := h.Q.GetProductByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Q.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	if h.Svc != nil {
		h.Svc.InvalidateProduct(r.Context(), product.Slug)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateVariant handles POST /api/v1/admin/products/{id}/variants.
func (h *AdminHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, err := common.ParsePgUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload variantPayload
	if !h.decode(w, r, &payload) {
		return
	}
	variant, err := h.Q.CreateVariant(r.Context(), db.CreateVariantParams{
		ProductID: productID,
		Color:     payload.Color,
		Size:      payload.Size,
		Stock:     payload.Stock,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": variant})
}

// UpdateStock handles PUT /api/v1/admin/variants/{id}/stock.
func (h *AdminHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParsePgUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid variant id", nil)
		return
	}
	var payload stockPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if err := h.Q.UpdateVariantStock(r.Context(), db.UpdateVariantStockParams{ID: id, Stock: payload.Stock}); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog queries not configured", nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		common.JSONError(w, http.StatusConflict, "CONFLICT", "slug already exists", nil)
	case errors.As(err, &pgErr) && pgErr.Code == "23503":
		common.JSONError(w, http.StatusConflict, "CONFLICT", "resource is referenced", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog operation failed", nil)
	}
}
