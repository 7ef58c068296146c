package db

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, cart_id, status, currency,
pricing_subtotal, pricing_discount, pricing_tax, pricing_total,
coupon_code, shipping_address, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.CartID, &o.Status, &o.Currency,
		&o.PricingSubtotal, &o.PricingDiscount, &o.PricingTax, &o.PricingTotal,
		&o.CouponCode, &o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// CreateOrderParams freezes cart pricing into a new order row.
type CreateOrderParams struct {
	UserID          pgtype.UUID
	CartID          pgtype.UUID
	Status          OrderStatus
	Currency        string
	PricingSubtotal int64
	PricingDiscount int64
	PricingTax      int64
	PricingTotal    int64
	CouponCode      pgtype.Text
	ShippingAddress json.RawMessage
	Notes           pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO orders (user_id, cart_id, status, currency,
  pricing_subtotal, pricing_discount, pricing_tax, pricing_total,
  coupon_code, shipping_address, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+orderColumns,
		arg.UserID, arg.CartID, arg.Status, arg.Currency,
		arg.PricingSubtotal, arg.PricingDiscount, arg.PricingTax, arg.PricingTotal,
		arg.CouponCode, arg.ShippingAddress, arg.Notes)
	return scanOrder(row)
}

const orderItemColumns = `id, order_id, product_id, variant_id, title, slug, qty, unit_price, subtotal`

func scanOrderItem(row interface{ Scan(dest ...any) error }) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
		&it.Title, &it.Slug, &it.Qty, &it.UnitPrice, &it.Subtotal)
	return it, err
}

// CreateOrderItemParams snapshots one cart line onto the order.
type CreateOrderItemParams struct {
	OrderID   pgtype.UUID
	ProductID pgtype.UUID
	VariantID pgtype.UUID
	Title     string
	Slug      string
	Qty       int32
	UnitPrice int64
	Subtotal  int64
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO order_items (order_id, product_id, variant_id, title, slug, qty, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+orderItemColumns,
		arg.OrderID, arg.ProductID, arg.VariantID, arg.Title, arg.Slug,
		arg.Qty, arg.UnitPrice, arg.Subtotal)
	return scanOrderItem(row)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (q *Queries) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderByIDForUserParams scopes an order lookup to its owner.
type GetOrderByIDForUserParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

func (q *Queries) GetOrderByIDForUser(ctx context.Context, arg GetOrderByIDForUserParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`,
		arg.ID, arg.UserID)
	return scanOrder(row)
}

// ListOrdersForUserParams pages a user's order history.
type ListOrdersForUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersForUser(ctx context.Context, arg ListOrdersForUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
SELECT `+orderColumns+` FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *Queries) CountOrdersForUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (q *Queries) GetOrderStatus(ctx context.Context, id pgtype.UUID) (OrderStatus, error) {
	var s OrderStatus
	err := q.db.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1`, id).Scan(&s)
	return s, err
}

// UpdateOrderStatusParams sets a new lifecycle status.
type UpdateOrderStatusParams struct {
	ID     pgtype.UUID
	Status OrderStatus
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		arg.ID, arg.Status)
	return err
}

// UpdateOrderStatusIfCurrentParams performs a compare-and-set transition.
type UpdateOrderStatusIfCurrentParams struct {
	ID      pgtype.UUID
	Status  OrderStatus
	Current OrderStatus
}

// UpdateOrderStatusIfCurrent transitions the order only when it still holds
// the expected status, returning rows affected so callers can detect races.
func (q *Queries) UpdateOrderStatusIfCurrent(ctx context.Context, arg UpdateOrderStatusIfCurrentParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3`,
		arg.ID, arg.Status, arg.Current)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CreatePaymentParams records a payment against an order.
type CreatePaymentParams struct {
	OrderID pgtype.UUID
	Method  string
	Amount  int64
	Status  string
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO payments (order_id, method, amount, status)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, method, amount, status, created_at`,
		arg.OrderID, arg.Method, arg.Amount, arg.Status)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.CreatedAt)
	return p, err
}

// UpdatePaymentStatusParams moves the latest payment for an order to a new state.
type UpdatePaymentStatusParams struct {
	OrderID pgtype.UUID
	Status  string
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) error {
	_, err := q.db.Exec(ctx, `
UPDATE payments SET status = $2
WHERE id = (
  SELECT id FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1
)`,
		arg.OrderID, arg.Status)
	return err
}

// DailySalesRow is one day of aggregated sales.
type DailySalesRow struct {
	Day        pgtype.Date
	OrderCount int64
	GrossTotal int64
	Discount   int64
	Tax        int64
}

// GetDailySalesParams bounds the report window.
type GetDailySalesParams struct {
	From pgtype.Timestamptz
	To   pgtype.Timestamptz
}

// GetDailySales aggregates paid-or-later orders per day for staff reports.
func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]DailySalesRow, error) {
	rows, err := q.db.Query(ctx, `
SELECT date_trunc('day', created_at)::date AS day,
       count(*),
       coalesce(sum(pricing_total), 0),
       coalesce(sum(pricing_discount), 0),
       coalesce(sum(pricing_tax), 0)
FROM orders
WHERE status IN ('PAID', 'PROCESSING', 'SHIPPED', 'COMPLETED')
  AND created_at >= $1 AND created_at < $2
GROUP BY 1
ORDER BY 1`, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailySalesRow
	for rows.Next() {
		var r DailySalesRow
		if err := rows.Scan(&r.Day, &r.OrderCount, &r.GrossTotal, &r.Discount, &r.Tax); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopProductRow is one product in the best-sellers report.
type TopProductRow struct {
	ProductID pgtype.UUID
	Title     string
	UnitsSold int64
	Revenue   int64
}

// GetTopProductsParams bounds and sizes the best-sellers report.
type GetTopProductsParams struct {
	From  pgtype.Timestamptz
	To    pgtype.Timestamptz
	Limit int32
}

// GetTopProducts ranks products by units sold in the window.
func (q *Queries) GetTopProducts(ctx context.Context, arg GetTopProductsParams) ([]TopProductRow, error) {
	rows, err := q.db.Query(ctx, `
SELECT oi.product_id, oi.title, sum(oi.qty), sum(oi.subtotal)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.status IN ('PAID', 'PROCESSING', 'SHIPPED', 'COMPLETED')
  AND o.created_at >= $1 AND o.created_at < $2
GROUP BY oi.product_id, oi.title
ORDER BY sum(oi.qty) DESC
LIMIT $3`, arg.From, arg.To, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopProductRow
	for rows.Next() {
		var r TopProductRow
		if err := rows.Scan(&r.ProductID, &r.Title, &r.UnitsSold, &r.Revenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
