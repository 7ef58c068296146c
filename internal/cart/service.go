package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/coupon"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Querier captures the database methods required by the cart service.
type Querier interface {
	CreateCart(ctx context.Context, arg db.CreateCartParams) (db.Cart, error)
	GetCartByID(ctx context.Context, id pgtype.UUID) (db.Cart, error)
	GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	GetActiveCartByAnon(ctx context.Context, anonID pgtype.Text) (db.Cart, error)
	TouchCart(ctx context.Context, arg db.TouchCartParams) error
	TransferCartToUser(ctx context.Context, arg db.TransferCartToUserParams) error
	UpdateCartCoupon(ctx context.Context, arg db.UpdateCartCouponParams) error
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]db.CartItem, error)
	FindCartItemByProductVariant(ctx context.Context, arg db.FindCartItemByProductVariantParams) (db.CartItem, error)
	GetCartItemByID(ctx context.Context, id pgtype.UUID) (db.CartItem, error)
	CreateCartItem(ctx context.Context, arg db.CreateCartItemParams) (db.CartItem, error)
	UpdateCartItemQty(ctx context.Context, arg db.UpdateCartItemQtyParams) (db.CartItem, error)
	DeleteCartItem(ctx context.Context, arg db.DeleteCartItemParams) error
	GetProductForCart(ctx context.Context, arg db.GetProductForCartParams) (db.ProductForCartRow, error)
	ListCartItemCategories(ctx context.Context, cartID pgtype.UUID) ([]db.CartItemCategoryRow, error)
}

// Pricing is the full priced view of a cart returned to previews and checkout.
type Pricing struct {
	Summary    pricing.Summary
	CouponCode string
	// CouponDropped is set when a stale or no-longer-eligible coupon
	// selection was silently discarded during pricing.
	CouponDropped bool
}

// Service encapsulates cart domain operations. Coupon evaluation is delegated
// to the coupon service so cart preview, checkout preview, and finalization
// all price identically.
type Service struct {
	Q       Querier
	Coupons *coupon.Service
	TTL     time.Duration
	TaxBps  int
	Now     func() time.Time
}

// WithQuerier returns a copy of the service bound to q for both cart and
// coupon reads, so checkout can price inside its own transaction through the
// exact same code path as cart preview.
func (s *Service) WithQuerier(q Querier, cq coupon.Querier) *Service {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Q = q
	cp.Coupons = s.Coupons.WithQuerier(cq)
	return &cp
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) expiry() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}
}

// EnsureCart loads or creates a cart for the provided identifiers.
func (s *Service) EnsureCart(ctx context.Context, userID *string, anonID *string) (db.Cart, error) {
	if s == nil || s.Q == nil {
		return db.Cart{}, errors.New("cart service not configured")
	}
	expires := s.expiry()

	if userID != nil && *userID != "" {
		uid, err := common.ParsePgUUID(*userID)
		if err != nil {
			return db.Cart{}, fmt.Errorf("parse user id: %w", err)
		}
		cart, err := s.Q.GetActiveCartByUser(ctx, uid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Q.CreateCart(ctx, db.CreateCartParams{UserID: uid, ExpiresAt: expires})
			}
			return db.Cart{}, err
		}
		_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cart.ID, ExpiresAt: expires})
		return cart, nil
	}

	if anonID != nil && *anonID != "" {
		anon := pgtype.Text{String: *anonID, Valid: true}
		cart, err := s.Q.GetActiveCartByAnon(ctx, anon)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Q.CreateCart(ctx, db.CreateCartParams{AnonID: anon, ExpiresAt: expires})
			}
			return db.Cart{}, err
		}
		_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cart.ID, ExpiresAt: expires})
		return cart, nil
	}

	return db.Cart{}, ErrInvalidInput
}

// AddItem inserts or increments a cart line, snapshotting the product's
// current price.
func (s *Service) AddItem(ctx context.Context, cartID, productID, variantID string, qty int) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	cID, err := common.ParsePgUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	pID, err := common.ParsePgUUID(productID)
	if err != nil {
		return fmt.Errorf("parse product id: %w", err)
	}
	vID, err := common.ParsePgUUID(variantID)
	if err != nil {
		return fmt.Errorf("parse variant id: %w", err)
	}

	expires := s.expiry()
	item, err := s.Q.FindCartItemByProductVariant(ctx, db.FindCartItemByProductVariantParams{
		CartID:    cID,
		ProductID: pID,
		VariantID: vID,
	})
	if err == nil {
		newQty := item.Qty + int32(qty)
		if _, err := s.Q.UpdateCartItemQty(ctx, db.UpdateCartItemQtyParams{
			ID:       item.ID,
			Qty:      newQty,
			Subtotal: int64(newQty) * item.UnitPrice,
		}); err != nil {
			return err
		}
		_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: expires})
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	product, err := s.Q.GetProductForCart(ctx, db.GetProductForCartParams{ProductID: pID, VariantID: vID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product or variant unknown: %w", ErrInvalidInput)
		}
		return err
	}
	if !product.IsAvailable {
		return fmt.Errorf("product not available: %w", ErrInvalidInput)
	}
	if product.Stock < int32(qty) {
		return fmt.Errorf("variant out of stock: %w", ErrInvalidInput)
	}
	if _, err := s.Q.CreateCartItem(ctx, db.CreateCartItemParams{
		CartID:    cID,
		ProductID: pID,
		VariantID: vID,
		Title:     product.Title,
		Slug:      product.Slug,
		Qty:       int32(qty),
		UnitPrice: product.Price,
		Subtotal:  int64(qty) * product.Price,
	}); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: expires})
	return nil
}

// UpdateQty updates the quantity for a cart line.
func (s *Service) UpdateQty(ctx context.Context, itemID string, qty int) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	id, err := common.ParsePgUUID(itemID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}
	item, err := s.Q.GetCartItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := s.Q.UpdateCartItemQty(ctx, db.UpdateCartItemQtyParams{
		ID:       item.ID,
		Qty:      int32(qty),
		Subtotal: int64(qty) * item.UnitPrice,
	}); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: item.CartID, ExpiresAt: s.expiry()})
	return nil
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	cID, err := common.ParsePgUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	iID, err := common.ParsePgUUID(itemID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}
	if err := s.Q.DeleteCartItem(ctx, db.DeleteCartItemParams{ID: iID, CartID: cID}); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: s.expiry()})
	return nil
}

// ApplyCoupon evaluates a code against the cart's current contents and, when
// eligible, stores it as the cart's selection. The evaluation result is
// returned so callers can show the projected discount.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) (coupon.Evaluation, error) {
	if s == nil || s.Q == nil || s.Coupons == nil {
		return coupon.Evaluation{}, errors.New("cart service not configured")
	}
	cID, err := common.ParsePgUUID(cartID)
	if err != nil {
		return coupon.Evaluation{}, fmt.Errorf("parse cart id: %w", err)
	}
	cart, err := s.Q.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Evaluation{}, ErrNotFound
		}
		return coupon.Evaluation{}, err
	}
	items, err := s.couponItems(ctx, cart.ID)
	if err != nil {
		return coupon.Evaluation{}, err
	}
	result, err := s.Coupons.Evaluate(ctx, code, cart.UserID, items)
	if err != nil {
		return coupon.Evaluation{}, err
	}
	if err := s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{
		ID:                cart.ID,
		AppliedCouponCode: pgtype.Text{String: result.Code, Valid: true},
	}); err != nil {
		return coupon.Evaluation{}, err
	}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cart.ID, ExpiresAt: s.expiry()})
	return result, nil
}

// RemoveCoupon clears the cart's coupon selection.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	cID, err := common.ParsePgUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	if err := s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: cID}); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: s.expiry()})
	return nil
}

// Price computes the cart's full pricing. The stored coupon selection is
// re-evaluated against the current contents; if it no longer holds, the
// selection is dropped silently and the cart prices without a discount.
func (s *Service) Price(ctx context.Context, cart db.Cart) (Pricing, []db.CartItem, error) {
	if s == nil || s.Q == nil {
		return Pricing{}, nil, errors.New("cart service not configured")
	}
	items, err := s.Q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return Pricing{}, nil, err
	}
	lines := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Item{Qty: int(it.Qty), UnitPrice: it.UnitPrice})
	}

	var discount int64
	var appliedCode string
	dropped := false
	if cart.AppliedCouponCode.Valid && cart.AppliedCouponCode.String != "" {
		couponItems, err := s.couponItems(ctx, cart.ID)
		if err != nil {
			return Pricing{}, nil, err
		}
		result, err := s.Coupons.Evaluate(ctx, cart.AppliedCouponCode.String, cart.UserID, couponItems)
		switch {
		case err == nil:
			discount = result.Discount
			appliedCode = result.Code
		case coupon.ReasonCode(err) != "" || errors.Is(err, coupon.ErrUnknownCode):
			log.Ctx(ctx).Info().
				Str("code", cart.AppliedCouponCode.String).
				Str("reason", coupon.ReasonCode(err)).
				Msg("dropping stale coupon selection")
			_ = s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: cart.ID})
			dropped = true
		default:
			return Pricing{}, nil, err
		}
	}

	return Pricing{
		Summary:       pricing.Compute(lines, discount, s.TaxBps),
		CouponCode:    appliedCode,
		CouponDropped: dropped,
	}, items, nil
}

// Merge moves guest cart items into the user's active cart returning the
// resulting cart identifier.
func (s *Service) Merge(ctx context.Context, guestCartID, userID string) (string, error) {
	if s == nil || s.Q == nil {
		return "", errors.New("cart service not configured")
	}
	gID, err := common.ParsePgUUID(guestCartID)
	if err != nil {
		return "", fmt.Errorf("parse guest cart id: %w", err)
	}
	uID, err := common.ParsePgUUID(userID)
	if err != nil {
		return "", fmt.Errorf("parse user id: %w", err)
	}
	guestCart, err := s.Q.GetCartByID(ctx, gID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	userIDCopy := userID
	userCart, err := s.EnsureCart(ctx, &userIDCopy, nil)
	if err != nil {
		return "", err
	}
	guestItems, err := s.Q.ListCartItems(ctx, gID)
	if err != nil {
		return "", err
	}
	for _, item := range guestItems {
		existing, err := s.Q.FindCartItemByProductVariant(ctx, db.FindCartItemByProductVariantParams{
			CartID:    userCart.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
		})
		if err == nil {
			if existing.Qty < item.Qty {
				if _, err := s.Q.UpdateCartItemQty(ctx, db.UpdateCartItemQtyParams{
					ID:       existing.ID,
					Qty:      item.Qty,
					Subtotal: int64(item.Qty) * existing.UnitPrice,
				}); err != nil {
					return "", err
				}
			}
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		if _, err := s.Q.CreateCartItem(ctx, db.CreateCartItemParams{
			CartID:    userCart.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Title:     item.Title,
			Slug:      item.Slug,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}); err != nil {
			return "", err
		}
	}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: userCart.ID, ExpiresAt: s.expiry()})
	// retire the guest cart immediately
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: guestCart.ID, ExpiresAt: pgtype.Timestamptz{Time: s.now(), Valid: true}})
	_ = s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: guestCart.ID})
	_ = s.Q.TransferCartToUser(ctx, db.TransferCartToUserParams{ID: guestCart.ID, UserID: uID})
	return uuidString(userCart.ID), nil
}

func (s *Service) couponItems(ctx context.Context, cartID pgtype.UUID) ([]coupon.Item, error) {
	rows, err := s.Q.ListCartItemCategories(ctx, cartID)
	if err != nil {
		return nil, err
	}
	items := make([]coupon.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, coupon.Item{
			CategoryID: uuid.UUID(row.CategoryID.Bytes),
			Subtotal:   row.Subtotal,
		})
	}
	return items, nil
}

func uuidString(id pgtype.UUID) string {
	return common.UUIDString(id)
}
