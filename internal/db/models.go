package db

import (
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
)

// CouponScope enumerates the applicability of a coupon.
type CouponScope string

const (
	// CouponScopeAll applies the coupon to every cart line.
	CouponScopeAll CouponScope = "ALL"
	// CouponScopeCategory restricts the coupon to a set of categories.
	CouponScopeCategory CouponScope = "CATEGORY"
)

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCanceled       OrderStatus = "CANCELED"
)

// ReturnStatus enumerates return request lifecycle states.
type ReturnStatus string

const (
	ReturnStatusPending    ReturnStatus = "PENDING"
	ReturnStatusApproved   ReturnStatus = "APPROVED"
	ReturnStatusRejected   ReturnStatus = "REJECTED"
	ReturnStatusProcessing ReturnStatus = "PROCESSING"
	ReturnStatusCompleted  ReturnStatus = "COMPLETED"
)

// User is a registered account (customer or staff).
type User struct {
	ID           pgtype.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// Category groups products for browsing and coupon scoping.
type Category struct {
	ID        pgtype.UUID
	Name      string
	Slug      string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// Product is a catalog entry priced in integer VND.
type Product struct {
	ID          pgtype.UUID
	CategoryID  pgtype.UUID
	Title       string
	Slug        string
	Description pgtype.Text
	Price       int64
	IsAvailable bool
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

// ProductVariant is a color/size combination with its own stock count.
type ProductVariant struct {
	ID        pgtype.UUID
	ProductID pgtype.UUID
	Color     string
	Size      string
	Stock     int32
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// Cart is a shopping cart owned by a user or an anonymous session.
type Cart struct {
	ID                pgtype.UUID
	UserID            pgtype.UUID
	AnonID            pgtype.Text
	AppliedCouponCode pgtype.Text
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
	ExpiresAt         pgtype.Timestamptz
}

// CartItem is a single cart line with a price snapshot.
type CartItem struct {
	ID        pgtype.UUID
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	VariantID pgtype.UUID
	Title     string
	Slug      string
	Qty       int32
	UnitPrice int64
	Subtotal  int64
}

// Coupon is a staff-managed percentage discount code.
type Coupon struct {
	ID                  pgtype.UUID
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
	CreatedAt           pgtype.Timestamptz
	UpdatedAt           pgtype.Timestamptz
}

// CouponUsage is one ledger entry per (coupon, user, order) redemption.
type CouponUsage struct {
	ID        pgtype.UUID
	CouponID  pgtype.UUID
	UserID    pgtype.UUID
	OrderID   pgtype.UUID
	UsedCount int32
	CreatedAt pgtype.Timestamptz
}

// Order is a placed order with frozen pricing fields.
type Order struct {
	ID              pgtype.UUID
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
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

// OrderItem is an immutable order line snapshot.
type OrderItem struct {
	ID        pgtype.UUID
	OrderID   pgtype.UUID
	ProductID pgtype.UUID
	VariantID pgtype.UUID
	Title     string
	Slug      string
	Qty       int32
	UnitPrice int64
	Subtotal  int64
}

// Payment records a payment attempt against an order.
type Payment struct {
	ID        pgtype.UUID
	OrderID   pgtype.UUID
	Method    string
	Amount    int64
	Status    string
	CreatedAt pgtype.Timestamptz
}

// ReturnRequest is a post-sale return/refund request.
type ReturnRequest struct {
	ID           pgtype.UUID
	ReturnNumber string
	OrderID      pgtype.UUID
	UserID       pgtype.UUID
	ReturnType   string
	Reason       string
	Description  pgtype.Text
	Status       ReturnStatus
	AdminNote    pgtype.Text
	RefundAmount int64
	ProcessedBy  pgtype.UUID
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
	ApprovedAt   pgtype.Timestamptz
	CompletedAt  pgtype.Timestamptz
}

// DomainEvent is a persisted integration event.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     json.RawMessage
	OccurredAt  pgtype.Timestamptz
}

// ActivationToken is a single-use account activation token.
type ActivationToken struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	TokenHash string
	ExpiresAt pgtype.Timestamptz
	UsedAt    pgtype.Timestamptz
	CreatedAt pgtype.Timestamptz
}

// RefreshSession stores a hashed refresh token issued at login.
type RefreshSession struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	TokenHash string
	UserAgent pgtype.Text
	IP        pgtype.Text
	ExpiresAt pgtype.Timestamptz
	RevokedAt pgtype.Timestamptz
	CreatedAt pgtype.Timestamptz
}
