package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

type stubProvider struct {
	categories []db.Category
	products   []db.Product
	variants   []db.ProductVariant
	listCalls  int
}

func (s *stubProvider) ListCategories(ctx context.Context) ([]db.Category, error) {
	return s.categories, nil
}

func (s *stubProvider) GetCategoryBySlug(ctx context.Context, slug string) (db.Category, error) {
	for _, c := range s.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return db.Category{}, pgx.ErrNoRows
}

func (s *stubProvider) GetCategoryByID(ctx context.Context, id pgtype.UUID) (db.Category, error) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return db.Category{}, pgx.ErrNoRows
}

func (s *stubProvider) ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error) {
	s.listCalls++
	if arg.CategoryID.Valid {
		var out []db.Product
		for _, p := range s.products {
			if p.CategoryID == arg.CategoryID {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return s.products, nil
}

func (s *stubProvider) CountProducts(ctx context.Context, arg db.CountProductsParams) (int64, error) {
	return int64(len(s.products)), nil
}

func (s *stubProvider) GetProductBySlug(ctx context.Context, slug string) (db.Product, error) {
	for _, p := range s.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return db.Product{}, pgx.ErrNoRows
}

func (s *stubProvider) ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]db.ProductVariant, error) {
	var out []db.ProductVariant
	for _, v := range s.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func fixtureProvider() *stubProvider {
	catID := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	prodID := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	return &stubProvider{
		categories: []db.Category{{ID: catID, Name: "Shirts", Slug: "shirts"}},
		products: []db.Product{{
			ID:          prodID,
			CategoryID:  catID,
			Title:       "Linen Shirt",
			Slug:        "linen-shirt",
			Price:       250_000,
			IsAvailable: true,
		}},
		variants: []db.ProductVariant{
			{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, ProductID: prodID, Color: "white", Size: "M", Stock: 3},
			{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, ProductID: prodID, Color: "white", Size: "L", Stock: 0},
		},
	}
}

func newTestHandler(t *testing.T, provider *stubProvider, cache *Cache) *Handler {
	t.Helper()
	svc, err := NewService(ServiceConfig{Queries: provider, Cache: cache, DefaultLimit: 20})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return NewHandler(HandlerConfig{Service: svc})
}

func TestProductsListResponse(t *testing.T) {
	h := newTestHandler(t, fixtureProvider(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	h.Products(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Total-Count"); got != "1" {
		t.Fatalf("X-Total-Count = %q, want 1", got)
	}
	var body struct {
		Data []ProductListItem `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Slug != "linen-shirt" {
		t.Fatalf("unexpected items %+v", body.Data)
	}
}

func TestProductsRejectsBadPage(t *testing.T) {
	h := newTestHandler(t, fixtureProvider(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?page=zero", nil)
	rec := httptest.NewRecorder()
	h.Products(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProductDetailAggregatesVariants(t *testing.T) {
	provider := fixtureProvider()
	h := newTestHandler(t, provider, nil)
	router := chi.NewRouter()
	router.Get("/products/{slug}", h.ProductDetail)

	req := httptest.NewRequest(http.MethodGet, "/products/linen-shirt", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Data ProductDetail `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(body.Data.Variants))
	}
	if !body.Data.InStock {
		t.Fatal("product with stocked variant must be inStock")
	}
	if body.Data.Category == nil || body.Data.Category.Slug != "shirts" {
		t.Fatalf("unexpected category %+v", body.Data.Category)
	}
}

func TestProductDetailNotFound(t *testing.T) {
	h := newTestHandler(t, fixtureProvider(), nil)
	router := chi.NewRouter()
	router.Get("/products/{slug}", h.ProductDetail)

	req := httptest.NewRequest(http.MethodGet, "/products/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRelatedExcludesSelf(t *testing.T) {
	provider := fixtureProvider()
	sibling := provider.products[0]
	sibling.ID = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	sibling.Title = "Cotton Shirt"
	sibling.Slug = "cotton-shirt"
	provider.products = append(provider.products, sibling)

	h := newTestHandler(t, provider, nil)
	router := chi.NewRouter()
	router.Get("/products/{slug}/related", h.Related)

	req := httptest.NewRequest(http.MethodGet, "/products/linen-shirt/related", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body struct {
		Data []ProductListItem `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Slug != "cotton-shirt" {
		t.Fatalf("unexpected related %+v", body.Data)
	}
}

func TestDefaultListServedFromCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := fixtureProvider()
	cache := NewCache(client, time.Minute)
	svc, err := NewService(ServiceConfig{Queries: provider, Cache: cache, DefaultLimit: 20})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	params, _ := svc.ParseListParams(nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.ListProducts(context.Background(), params); err != nil {
			t.Fatalf("ListProducts() error: %v", err)
		}
	}
	if provider.listCalls != 1 {
		t.Fatalf("listCalls = %d, want 1 (second hit should come from cache)", provider.listCalls)
	}
}
