package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, name, slug, created_at, updated_at`

func scanCategory(row interface{ Scan(dest ...any) error }) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategoryParams carries a new category.
type CreateCategoryParams struct {
	Name string
	Slug string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO categories (name, slug) VALUES ($1, $2)
RETURNING `+categoryColumns, arg.Name, arg.Slug)
	return scanCategory(row)
}

func (q *Queries) GetCategoryByID(ctx context.Context, id pgtype.UUID) (Category, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	return scanCategory(row)
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCategoryParams renames a category.
type UpdateCategoryParams struct {
	ID   pgtype.UUID
	Name string
	Slug string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
UPDATE categories SET name = $2, slug = $3, updated_at = now() WHERE id = $1
RETURNING `+categoryColumns, arg.ID, arg.Name, arg.Slug)
	return scanCategory(row)
}

func (q *Queries) DeleteCategory(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}

const productColumns = `id, category_id, title, slug, description, price, is_available, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Title, &p.Slug, &p.Description,
		&p.Price, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProductParams carries a new product.
type CreateProductParams struct {
	CategoryID  pgtype.UUID
	Title       string
	Slug        string
	Description pgtype.Text
	Price       int64
	IsAvailable bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO products (category_id, title, slug, description, price, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+productColumns,
		arg.CategoryID, arg.Title, arg.Slug, arg.Description, arg.Price, arg.IsAvailable)
	return scanProduct(row)
}

// UpdateProductParams replaces the mutable fields of a product.
type UpdateProductParams struct {
	ID          pgtype.UUID
	CategoryID  pgtype.UUID
	Title       string
	Slug        string
	Description pgtype.Text
	Price       int64
	IsAvailable bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
UPDATE products
SET category_id = $2, title = $3, slug = $4, description = $5,
    price = $6, is_available = $7, updated_at = now()
WHERE id = $1
RETURNING `+productColumns,
		arg.ID, arg.CategoryID, arg.Title, arg.Slug, arg.Description,
		arg.Price, arg.IsAvailable)
	return scanProduct(row)
}

func (q *Queries) DeleteProduct(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanProduct(row)
}

// ListProductsParams filters and pages the public listing.
type ListProductsParams struct {
	CategoryID pgtype.UUID
	Search     pgtype.Text
	Limit      int32
	Offset     int32
}

// ListProducts returns available products, newest first. Category and
// search filters apply only when set.
func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, `
SELECT `+productColumns+` FROM products
WHERE is_available
  AND ($1::uuid IS NULL OR category_id = $1)
  AND ($2::text IS NULL OR title ILIKE '%' || $2 || '%')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`,
		arg.CategoryID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountProductsParams mirrors the ListProducts filters.
type CountProductsParams struct {
	CategoryID pgtype.UUID
	Search     pgtype.Text
}

func (q *Queries) CountProducts(ctx context.Context, arg CountProductsParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
SELECT count(*) FROM products
WHERE is_available
  AND ($1::uuid IS NULL OR category_id = $1)
  AND ($2::text IS NULL OR title ILIKE '%' || $2 || '%')`,
		arg.CategoryID, arg.Search).Scan(&n)
	return n, err
}

const variantColumns = `id, product_id, color, size, stock, created_at, updated_at`

func scanVariant(row interface{ Scan(dest ...any) error }) (ProductVariant, error) {
	var v ProductVariant
	err := row.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Stock,
		&v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// CreateVariantParams carries a new product variant.
type CreateVariantParams struct {
	ProductID pgtype.UUID
	Color     string
	Size      string
	Stock     int32
}

func (q *Queries) CreateVariant(ctx context.Context, arg CreateVariantParams) (ProductVariant, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO product_variants (product_id, color, size, stock)
VALUES ($1, $2, $3, $4)
RETURNING `+variantColumns,
		arg.ProductID, arg.Color, arg.Size, arg.Stock)
	return scanVariant(row)
}

func (q *Queries) GetVariantByID(ctx context.Context, id pgtype.UUID) (ProductVariant, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE id = $1`, id)
	return scanVariant(row)
}

func (q *Queries) ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]ProductVariant, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE product_id = $1 ORDER BY color, size`,
		productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVariantStockParams sets an absolute stock level.
type UpdateVariantStockParams struct {
	ID    pgtype.UUID
	Stock int32
}

// UpdateVariantStock replaces the stock count, used by restocks and returns.
func (q *Queries) UpdateVariantStock(ctx context.Context, arg UpdateVariantStockParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE product_variants SET stock = $2, updated_at = now() WHERE id = $1`,
		arg.ID, arg.Stock)
	return err
}

// DecrementVariantStockParams carries the conditional decrement.
type DecrementVariantStockParams struct {
	ID  pgtype.UUID
	Qty int32
}

// DecrementVariantStock atomically reserves stock. The WHERE guard makes
// the decrement conditional on availability; zero rows affected means the
// variant had less stock than requested.
func (q *Queries) DecrementVariantStock(ctx context.Context, arg DecrementVariantStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
UPDATE product_variants
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2`, arg.ID, arg.Qty)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IncrementVariantStockParams restores stock on cancellation or approved return.
type IncrementVariantStockParams struct {
	ID  pgtype.UUID
	Qty int32
}

func (q *Queries) IncrementVariantStock(ctx context.Context, arg IncrementVariantStockParams) error {
	_, err := q.db.Exec(ctx, `
UPDATE product_variants
SET stock = stock + $2, updated_at = now()
WHERE id = $1`, arg.ID, arg.Qty)
	return err
}

// ProductForCartRow joins product and variant data needed to add a cart line.
type ProductForCartRow struct {
	ProductID   pgtype.UUID
	CategoryID  pgtype.UUID
	Title       string
	Slug        string
	Price       int64
	IsAvailable bool
	VariantID   pgtype.UUID
	Stock       int32
}

// GetProductForCartParams identifies the product/variant pair being added.
type GetProductForCartParams struct {
	ProductID pgtype.UUID
	VariantID pgtype.UUID
}

// GetProductForCart returns the snapshot fields for a cart line in one round trip.
func (q *Queries) GetProductForCart(ctx context.Context, arg GetProductForCartParams) (ProductForCartRow, error) {
	var r ProductForCartRow
	err := q.db.QueryRow(ctx, `
SELECT p.id, p.category_id, p.title, p.slug, p.price, p.is_available, v.id, v.stock
FROM products p
JOIN product_variants v ON v.product_id = p.id
WHERE p.id = $1 AND v.id = $2`,
		arg.ProductID, arg.VariantID).
		Scan(&r.ProductID, &r.CategoryID, &r.Title, &r.Slug, &r.Price,
			&r.IsAvailable, &r.VariantID, &r.Stock)
	return r, err
}

// GetCategoryIDsForCart returns the distinct category ids of the products in a
// cart, used to compute the coupon-eligible subtotal for category-scoped coupons.
func (q *Queries) GetCategoryIDsForCart(ctx context.Context, cartID pgtype.UUID) ([]pgtype.UUID, error) {
	rows, err := q.db.Query(ctx, `
SELECT DISTINCT p.category_id
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pgtype.UUID
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CartItemCategoryRow pairs a cart line with its product's category.
type CartItemCategoryRow struct {
	ItemID     pgtype.UUID
	CategoryID pgtype.UUID
	Subtotal   int64
}

// ListCartItemCategories returns per-line category ids and subtotals for
// scoped-coupon eligibility.
func (q *Queries) ListCartItemCategories(ctx context.Context, cartID pgtype.UUID) ([]CartItemCategoryRow, error) {
	rows, err := q.db.Query(ctx, `
SELECT ci.id, p.category_id, ci.subtotal
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItemCategoryRow
	for rows.Next() {
		var r CartItemCategoryRow
		if err := rows.Scan(&r.ItemID, &r.CategoryID, &r.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
