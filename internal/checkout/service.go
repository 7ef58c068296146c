package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/cart"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/events"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/lock"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/obs"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrNotFound indicates the cart does not exist or has expired.
var ErrNotFound = errors.New("cart not found")

// ErrForbidden indicates the cart belongs to a different user.
var ErrForbidden = errors.New("cart does not belong to user")

// Addr is the shipping address frozen onto the order as JSON.
type Addr struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	Province     string `json:"province"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
}

// Input carries everything needed to place an order from a cart.
type Input struct {
	CartID  string  `json:"cartId"`
	Address Addr    `json:"address"`
	Notes   *string `json:"notes"`
}

// Output is the placed-order confirmation returned to the client.
type Output struct {
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
	Currency string `json:"currency"`
	Pricing  struct {
		Subtotal int64 `json:"subtotal"`
		Discount int64 `json:"discount"`
		Tax      int64 `json:"tax"`
		Total    int64 `json:"total"`
	} `json:"pricing"`
	CouponCode string `json:"couponCode,omitempty"`
}

// Service places orders. Pricing is frozen at placement time through the same
// calculator the cart preview uses; the stock decrement and coupon settlement
// happen later, when the order is confirmed.
type Service struct {
	Q        *db.Queries
	Pool     *pgxpool.Pool
	Carts    *cart.Service
	Locks    lock.Locker
	LockTTL  time.Duration
	Currency string
	Events   *events.Bus
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// cartExpired reports whether the cart's expiry has passed. Expired carts are
// treated as missing.
func (s *Service) cartExpired(c db.Cart) bool {
	return c.ExpiresAt.Valid && !s.now().Before(c.ExpiresAt.Time)
}

// Preview prices the cart exactly as checkout will, without writing anything.
func (s *Service) Preview(ctx context.Context, userID string, cartID string) (cart.Pricing, []db.CartItem, error) {
	if s == nil || s.Q == nil || s.Carts == nil {
		return cart.Pricing{}, nil, errors.New("checkout service not configured")
	}
	cID, err := common.ParsePgUUID(cartID)
	if err != nil {
		return cart.Pricing{}, nil, fmt.Errorf("parse cart id: %w", err)
	}
	cartRow, err := s.Q.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Pricing{}, nil, ErrNotFound
		}
		return cart.Pricing{}, nil, err
	}
	if err := s.authorize(cartRow, userID); err != nil {
		return cart.Pricing{}, nil, err
	}
	return s.Carts.Price(ctx, cartRow)
}

// Create places a PENDING_PAYMENT order from the cart, freezing the priced
// totals and line snapshots. A per-cart lock serialises concurrent checkouts
// of the same cart.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Q == nil || s.Pool == nil || s.Carts == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if userID == "" {
		return Output{}, errors.New("user is required for checkout")
	}
	if in.CartID == "" {
		return Output{}, fmt.Errorf("cartId is required: %w", cart.ErrInvalidInput)
	}
	cID, err := common.ParsePgUUID(in.CartID)
	if err != nil {
		return Output{}, fmt.Errorf("parse cart id: %w", err)
	}
	uID, err := common.ParsePgUUID(userID)
	if err != nil {
		return Output{}, fmt.Errorf("parse user id: %w", err)
	}

	started := time.Now()
	var out Output
	run := func(ctx context.Context) error {
		var err error
		out, err = s.place(ctx, uID, cID, in)
		return err
	}
	if s.Locks.R != nil {
		err = s.Locks.WithLock(ctx, "checkout:cart:"+in.CartID, s.LockTTL, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		obs.ObserveOrderPlaced("rejected")
		return Output{}, err
	}
	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.Observe(float64(time.Since(started).Milliseconds()))
	}
	obs.ObserveOrderPlaced("created")
	return out, nil
}

func (s *Service) place(ctx context.Context, uID, cID pgtype.UUID, in Input) (Output, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	qtx := s.Q.WithTx(tx)

	cartRow, err := qtx.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Output{}, ErrNotFound
		}
		return Output{}, err
	}
	if cartRow.UserID.Valid && cartRow.UserID != uID {
		return Output{}, ErrForbidden
	}
	if s.cartExpired(cartRow) {
		return Output{}, ErrNotFound
	}

	priced, items, err := s.Carts.WithQuerier(qtx, qtx).Price(ctx, cartRow)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, ErrEmptyCart
	}

	order, err := qtx.CreateOrder(ctx, db.CreateOrderParams{
		UserID:          uID,
		CartID:          cID,
		Status:          db.OrderStatusPendingPayment,
		Currency:        s.Currency,
		PricingSubtotal: priced.Summary.Subtotal,
		PricingDiscount: priced.Summary.Discount,
		PricingTax:      priced.Summary.Tax,
		PricingTotal:    priced.Summary.Total,
		CouponCode:      common.PgText(priced.CouponCode),
		ShippingAddress: toJSON(in.Address),
		Notes:           nullableText(in.Notes),
	})
	if err != nil {
		return Output{}, err
	}
	for _, it := range items {
		if _, err := qtx.CreateOrderItem(ctx, db.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Slug:      it.Slug,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		}); err != nil {
			return Output{}, err
		}
	}
	if _, err := qtx.CreatePayment(ctx, db.CreatePaymentParams{
		OrderID: order.ID,
		Method:  "COD",
		Amount:  priced.Summary.Total,
		Status:  "PENDING",
	}); err != nil {
		return Output{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}

	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, order.ID, map[string]any{
			"orderId": common.UUIDString(order.ID),
			"userId":  common.UUIDString(uID),
			"total":   priced.Summary.Total,
		})
	}

	var out Output
	out.OrderID = common.UUIDString(order.ID)
	out.Status = string(order.Status)
	out.Currency = order.Currency
	out.Pricing.Subtotal = order.PricingSubtotal
	out.Pricing.Discount = order.PricingDiscount
	out.Pricing.Tax = order.PricingTax
	out.Pricing.Total = order.PricingTotal
	out.CouponCode = priced.CouponCode
	return out, nil
}

func (s *Service) authorize(cartRow db.Cart, userID string) error {
	if !cartRow.UserID.Valid || userID == "" {
		return nil
	}
	uID, err := common.ParsePgUUID(userID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	if cartRow.UserID != uID {
		return ErrForbidden
	}
	return nil
}

func toJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func nullableText(v *string) pgtype.Text {
	if v == nil || *v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}
