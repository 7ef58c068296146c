package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const couponColumns = `id, code, description, discount_percent, max_discount_amount,
min_purchase_amount, max_usage_count, max_usage_per_customer, applies_to, category_ids,
valid_from, valid_to, active, created_at, updated_at`

func scanCoupon(row interface{ Scan(dest ...any) error }) (Coupon, error) {
	var c Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountPercent, &c.MaxDiscountAmount,
		&c.MinPurchaseAmount, &c.MaxUsageCount, &c.MaxUsagePerCustomer, &c.AppliesTo,
		&c.CategoryIds, &c.ValidFrom, &c.ValidTo, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// CreateCouponParams carries the insert payload for a coupon.
type CreateCouponParams struct {
	Code                string
	Description         pgtype.Text
	DiscountPercent     int32
	MaxDiscountAmount   int64
	MinPurchaseAmount   int64
	MaxUsageCount       int32
	MaxUsagePerCustomer int32
	AppliesTo           CouponScope
	CategoryIds         []pgtype.UUID
	ValidFrom           pgtype.Timestamptz
	ValidTo             pgtype.Timestamptz
	Active              bool
}

// CreateCoupon inserts a coupon; the code is stored uppercase for case-insensitive lookups.
func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO coupons (
  code, description, discount_percent, max_discount_amount, min_purchase_amount,
  max_usage_count, max_usage_per_customer, applies_to, category_ids,
  valid_from, valid_to, active
) VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING `+couponColumns,
		arg.Code, arg.Description, arg.DiscountPercent, arg.MaxDiscountAmount,
		arg.MinPurchaseAmount, arg.MaxUsageCount, arg.MaxUsagePerCustomer, arg.AppliesTo,
		arg.CategoryIds, arg.ValidFrom, arg.ValidTo, arg.Active,
	)
	return scanCoupon(row)
}

// UpdateCouponParams carries the full update payload keyed by code.
type UpdateCouponParams struct {
	Code                string
	Description         pgtype.Text
	DiscountPercent     int32
	MaxDiscountAmount   int64
	MinPurchaseAmount   int64
	MaxUsageCount       int32
	MaxUsagePerCustomer int32
	AppliesTo           CouponScope
	CategoryIds         []pgtype.UUID
	ValidFrom           pgtype.Timestamptz
	ValidTo             pgtype.Timestamptz
	Active              bool
}

// UpdateCoupon replaces all mutable coupon fields.
func (q *Queries) UpdateCoupon(ctx context.Context, arg UpdateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, `
UPDATE coupons SET
  description = $2, discount_percent = $3, max_discount_amount = $4,
  min_purchase_amount = $5, max_usage_count = $6, max_usage_per_customer = $7,
  applies_to = $8, category_ids = $9, valid_from = $10, valid_to = $11,
  active = $12, updated_at = now()
WHERE code = UPPER($1)
RETURNING `+couponColumns,
		arg.Code, arg.Description, arg.DiscountPercent, arg.MaxDiscountAmount,
		arg.MinPurchaseAmount, arg.MaxUsageCount, arg.MaxUsagePerCustomer, arg.AppliesTo,
		arg.CategoryIds, arg.ValidFrom, arg.ValidTo, arg.Active,
	)
	return scanCoupon(row)
}

// DeleteCoupon removes a coupon by code.
func (q *Queries) DeleteCoupon(ctx context.Context, code string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM coupons WHERE code = UPPER($1)`, code)
	return err
}

// GetCouponByCode resolves a coupon by its case-insensitive code.
func (q *Queries) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = UPPER($1)`, code)
	return scanCoupon(row)
}

// GetCouponByID resolves a coupon by identifier.
func (q *Queries) GetCouponByID(ctx context.Context, id pgtype.UUID) (Coupon, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)
	return scanCoupon(row)
}

// ListCoupons returns all coupons ordered by expiry, newest window first.
func (q *Queries) ListCoupons(ctx context.Context) ([]Coupon, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY valid_to DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCouponUsage returns the total number of ledger entries for a coupon.
func (q *Queries) CountCouponUsage(ctx context.Context, couponID pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1`, couponID).Scan(&n)
	return n, err
}

// CountCouponUsageByUserParams identifies a (coupon, user) pair.
type CountCouponUsageByUserParams struct {
	CouponID pgtype.UUID
	UserID   pgtype.UUID
}

// CountCouponUsageByUser returns how many times a user has redeemed a coupon.
func (q *Queries) CountCouponUsageByUser(ctx context.Context, arg CountCouponUsageByUserParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
		arg.CouponID, arg.UserID).Scan(&n)
	return n, err
}

// GetCouponUsageByOrderParams identifies a (coupon, order) pair.
type GetCouponUsageByOrderParams struct {
	CouponID pgtype.UUID
	OrderID  pgtype.UUID
}

// GetCouponUsageByOrder fetches the ledger entry recorded for an order, if any.
func (q *Queries) GetCouponUsageByOrder(ctx context.Context, arg GetCouponUsageByOrderParams) (CouponUsage, error) {
	var u CouponUsage
	err := q.db.QueryRow(ctx, `
SELECT id, coupon_id, user_id, order_id, used_count, created_at
FROM coupon_usages WHERE coupon_id = $1 AND order_id = $2`,
		arg.CouponID, arg.OrderID,
	).Scan(&u.ID, &u.CouponID, &u.UserID, &u.OrderID, &u.UsedCount, &u.CreatedAt)
	return u, err
}

// InsertCouponUsageParams carries a new ledger entry.
type InsertCouponUsageParams struct {
	CouponID pgtype.UUID
	UserID   pgtype.UUID
	OrderID  pgtype.UUID
}

// InsertCouponUsage records one redemption. The unique constraint on
// (coupon_id, user_id, order_id) rejects double-booking of the same order.
func (q *Queries) InsertCouponUsage(ctx context.Context, arg InsertCouponUsageParams) error {
	_, err := q.db.Exec(ctx, `
INSERT INTO coupon_usages (coupon_id, user_id, order_id, used_count)
VALUES ($1, $2, $3, 1)`,
		arg.CouponID, arg.UserID, arg.OrderID)
	return err
}

// CouponUsageStatsRow aggregates ledger totals per coupon for dashboards.
// RemainingQuota is the unredeemed share of the global cap; -1 means the cap
// is unlimited.
type CouponUsageStatsRow struct {
	CouponID       pgtype.UUID
	Code           string
	MaxUsageCount  int32
	TotalUsed      int64
	DistinctUsers  int64
	RemainingQuota int64
}

// RemainingQuota derives the unredeemed share of a global usage cap. A zero
// cap means unlimited and yields -1; an over-redeemed cap floors at zero.
func RemainingQuota(maxUsageCount int32, totalUsed int64) int64 {
	if maxUsageCount <= 0 {
		return -1
	}
	remaining := int64(maxUsageCount) - totalUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetCouponUsageStats aggregates redemption counts grouped by coupon.
func (q *Queries) GetCouponUsageStats(ctx context.Context) ([]CouponUsageStatsRow, error) {
	rows, err := q.db.Query(ctx, `
SELECT c.id, c.code, c.max_usage_count,
  COALESCE(SUM(u.used_count), 0) AS total_used,
  COUNT(DISTINCT u.user_id) AS distinct_users
FROM coupons c
LEFT JOIN coupon_usages u ON u.coupon_id = c.id
GROUP BY c.id, c.code, c.max_usage_count
ORDER BY c.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CouponUsageStatsRow
	for rows.Next() {
		var r CouponUsageStatsRow
		if err := rows.Scan(&r.CouponID, &r.Code, &r.MaxUsageCount, &r.TotalUsed, &r.DistinctUsers); err != nil {
			return nil, err
		}
		r.RemainingQuota = RemainingQuota(r.MaxUsageCount, r.TotalUsed)
		out = append(out, r)
	}
	return out, rows.Err()
}
