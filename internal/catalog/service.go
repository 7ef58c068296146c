package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

type queryProvider interface {
	ListCategories(ctx context.Context) ([]db.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (db.Category, error)
	GetCategoryByID(ctx context.Context, id pgtype.UUID) (db.Category, error)
	ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error)
	CountProducts(ctx context.Context, arg db.CountProductsParams) (int64, error)
	GetProductBySlug(ctx context.Context, slug string) (db.Product, error)
	ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]db.ProductVariant, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// ProductListItem represents an entry in list/related responses.
type ProductListItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Price     int64  `json:"price"`
	Available bool   `json:"available"`
}

// Variant describes one color/size combination and its stock.
type Variant struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// Category represents the public category payload.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductDetail aggregates the full detail payload.
type ProductDetail struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Available   bool      `json:"available"`
	InStock     bool      `json:"inStock"`
	Category    *Category `json:"category,omitempty"`
	Variants    []Variant `json:"variants"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  s.defaultPage,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit
	return params, nil
}

// ListCategories returns all categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]Category, 0, len(rows))
	for _, row := range rows {
		result = append(result, Category{
			ID:   common.UUIDString(row.ID),
			Name: row.Name,
			Slug: row.Slug,
		})
	}
	return result, nil
}

// ListProducts returns the filtered product list with pagination metadata.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key, shouldUseCache := s.listCacheKey(params)
	if shouldUseCache && s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	var categoryID pgtype.UUID
	if params.Category != "" {
		cat, err := s.queries.GetCategoryBySlug(ctx, params.Category)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ProductListResult{Items: []ProductListItem{}, Page: params.Page, Limit: params.Limit}, nil
			}
			return ProductListResult{}, fmt.Errorf("resolve category: %w", err)
		}
		categoryID = cat.ID
	}
	search := common.PgText(params.Query)

	total, err := s.queries.CountProducts(ctx, db.CountProductsParams{
		CategoryID: categoryID,
		Search:     search,
	})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	offset := int32((params.Page - 1) * params.Limit)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.queries.ListProducts(ctx, db.ListProductsParams{
		CategoryID: categoryID,
		Search:     search,
		Limit:      int32(params.Limit),
		Offset:     offset,
	})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]ProductListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ProductListItem{
			ID:        common.UUIDString(row.ID),
			Title:     row.Title,
			Slug:      row.Slug,
			Price:     row.Price,
			Available: row.IsAvailable,
		})
	}
	result := ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if shouldUseCache && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetProductDetail returns the product with its variants and category.
func (s *Service) GetProductDetail(ctx context.Context, slug string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, badRequest("slug", "slug is required", nil)
	}
	cacheKey := detailCacheKey(slug)
	if s.cache != nil {
		var cached ProductDetail
		ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	product, err := s.queries.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return ProductDetail{}, fmt.Errorf("get product by slug: %w", err)
	}
	detail := ProductDetail{
		ID:        common.UUIDString(product.ID),
		Title:     product.Title,
		Slug:      product.Slug,
		Price:     product.Price,
		Available: product.IsAvailable,
	}
	if product.Description.Valid {
		desc := product.Description.String
		detail.Description = &desc
	}
	if product.CategoryID.Valid {
		cat, err := s.queries.GetCategoryByID(ctx, product.CategoryID)
		if err == nil {
			detail.Category = &Category{
				ID:   common.UUIDString(cat.ID),
				Name: cat.Name,
				Slug: cat.Slug,
			}
		}
	}
	variants, err := s.queries.ListVariantsByProduct(ctx, product.ID)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("list variants: %w", err)
	}
	detail.Variants = make([]Variant, 0, len(variants))
	for _, row := range variants {
		if row.Stock > 0 {
			detail.InStock = true
		}
		detail.Variants = append(detail.Variants, Variant{
			ID:    common.UUIDString(row.ID),
			Color: row.Color,
			Size:  row.Size,
			Stock: int(row.Stock),
		})
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, detail)
	}
	return detail, nil
}

// ListRelatedProducts fetches products sharing the category, excluding the
// product itself.
func (s *Service) ListRelatedProducts(ctx context.Context, slug string) ([]ProductListItem, error) {
	product, err := s.queries.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	if !product.CategoryID.Valid {
		return []ProductListItem{}, nil
	}
	rows, err := s.queries.ListProducts(ctx, db.ListProductsParams{
		CategoryID: product.CategoryID,
		Limit:      9,
	})
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	items := make([]ProductListItem, 0, len(rows))
	for _, row := range rows {
		if row.Slug == slug {
			continue
		}
		if len(items) == 8 {
			break
		}
		items = append(items, ProductListItem{
			ID:        common.UUIDString(row.ID),
			Title:     row.Title,
			Slug:      row.Slug,
			Price:     row.Price,
			Available: row.IsAvailable,
		})
	}
	return items, nil
}

// InvalidateProduct drops cached entries after an admin mutation.
func (s *Service) InvalidateProduct(ctx context.Context, slug string) {
	if s == nil || s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, detailCacheKey(slug), listCacheKeyDefault)
}

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

const listCacheKeyDefault = "catalog:products:list:default"

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if params.Page != s.defaultPage || params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Category != "" {
		return "", false
	}
	return listCacheKeyDefault, true
}

func detailCacheKey(slug string) string {
	return "catalog:products:detail:" + slug
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
