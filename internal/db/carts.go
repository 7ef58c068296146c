package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const cartColumns = `id, user_id, anon_id, applied_coupon_code, created_at, updated_at, expires_at`

func scanCart(row interface{ Scan(dest ...any) error }) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.AnonID, &c.AppliedCouponCode,
		&c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt)
	return c, err
}

const cartItemColumns = `id, cart_id, product_id, variant_id, title, slug, qty, unit_price, subtotal`

func scanCartItem(row interface{ Scan(dest ...any) error }) (CartItem, error) {
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.VariantID,
		&it.Title, &it.Slug, &it.Qty, &it.UnitPrice, &it.Subtotal)
	return it, err
}

// CreateCartParams identifies the owner of a new cart.
type CreateCartParams struct {
	UserID    pgtype.UUID
	AnonID    pgtype.Text
	ExpiresAt pgtype.Timestamptz
}

// CreateCart inserts an empty cart for a user or anonymous session.
func (q *Queries) CreateCart(ctx context.Context, arg CreateCartParams) (Cart, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO carts (user_id, anon_id, expires_at)
VALUES ($1, $2, $3)
RETURNING `+cartColumns, arg.UserID, arg.AnonID, arg.ExpiresAt)
	return scanCart(row)
}

// GetCartByID fetches a cart by identifier.
func (q *Queries) GetCartByID(ctx context.Context, id pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
	return scanCart(row)
}

// GetActiveCartByUser returns the newest unexpired cart owned by the user.
func (q *Queries) GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, `
SELECT `+cartColumns+` FROM carts
WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())
ORDER BY updated_at DESC LIMIT 1`, userID)
	return scanCart(row)
}

// GetActiveCartByAnon returns the newest unexpired cart for an anonymous session.
func (q *Queries) GetActiveCartByAnon(ctx context.Context, anonID pgtype.Text) (Cart, error) {
	row := q.db.QueryRow(ctx, `
SELECT `+cartColumns+` FROM carts
WHERE anon_id = $1 AND (expires_at IS NULL OR expires_at > now())
ORDER BY updated_at DESC LIMIT 1`, anonID)
	return scanCart(row)
}

// TouchCartParams extends a cart's expiry.
type TouchCartParams struct {
	ID        pgtype.UUID
	ExpiresAt pgtype.Timestamptz
}

// TouchCart refreshes expiry and updated_at on cart activity.
func (q *Queries) TouchCart(ctx context.Context, arg TouchCartParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1`,
		arg.ID, arg.ExpiresAt)
	return err
}

// TransferCartToUserParams reassigns a guest cart to a user.
type TransferCartToUserParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

// TransferCartToUser attaches a guest cart to the given user account.
func (q *Queries) TransferCartToUser(ctx context.Context, arg TransferCartToUserParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE carts SET user_id = $2, anon_id = NULL, updated_at = now() WHERE id = $1`,
		arg.ID, arg.UserID)
	return err
}

// UpdateCartCouponParams sets or clears the applied coupon code.
type UpdateCartCouponParams struct {
	ID                pgtype.UUID
	AppliedCouponCode pgtype.Text
}

// UpdateCartCoupon stores the coupon selection on the cart row.
func (q *Queries) UpdateCartCoupon(ctx context.Context, arg UpdateCartCouponParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE carts SET applied_coupon_code = $2, updated_at = now() WHERE id = $1`,
		arg.ID, arg.AppliedCouponCode)
	return err
}

// ListCartItems returns the cart lines in insertion order.
func (q *Queries) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FindCartItemByProductVariantParams identifies a line by its product/variant pair.
type FindCartItemByProductVariantParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	VariantID pgtype.UUID
}

// FindCartItemByProductVariant locates an existing line for increment-on-add.
func (q *Queries) FindCartItemByProductVariant(ctx context.Context, arg FindCartItemByProductVariantParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, `
SELECT `+cartItemColumns+` FROM cart_items
WHERE cart_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3`,
		arg.CartID, arg.ProductID, arg.VariantID)
	return scanCartItem(row)
}

// GetCartItemByID fetches a single cart line.
func (q *Queries) GetCartItemByID(ctx context.Context, id pgtype.UUID) (CartItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE id = $1`, id)
	return scanCartItem(row)
}

// CreateCartItemParams carries a new cart line with its price snapshot.
type CreateCartItemParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	VariantID pgtype.UUID
	Title     string
	Slug      string
	Qty       int32
	UnitPrice int64
	Subtotal  int64
}

// CreateCartItem inserts a cart line.
func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO cart_items (cart_id, product_id, variant_id, title, slug, qty, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+cartItemColumns,
		arg.CartID, arg.ProductID, arg.VariantID, arg.Title, arg.Slug,
		arg.Qty, arg.UnitPrice, arg.Subtotal)
	return scanCartItem(row)
}

// UpdateCartItemQtyParams carries the new quantity and recomputed subtotal.
type UpdateCartItemQtyParams struct {
	ID       pgtype.UUID
	Qty      int32
	Subtotal int64
}

// UpdateCartItemQty replaces the quantity on a cart line.
func (q *Queries) UpdateCartItemQty(ctx context.Context, arg UpdateCartItemQtyParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, `
UPDATE cart_items SET qty = $2, subtotal = $3 WHERE id = $1
RETURNING `+cartItemColumns, arg.ID, arg.Qty, arg.Subtotal)
	return scanCartItem(row)
}

// DeleteCartItemParams identifies the line to remove, scoped by cart.
type DeleteCartItemParams struct {
	ID     pgtype.UUID
	CartID pgtype.UUID
}

// DeleteCartItem removes one cart line.
func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) error {
	_, err := q.db.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, arg.ID, arg.CartID)
	return err
}

// ClearCartItems removes every line from a cart after order placement.
func (q *Queries) ClearCartItems(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}
