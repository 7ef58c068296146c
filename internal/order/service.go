package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/coupon"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/events"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/obs"
)

// ErrNotFound indicates the order does not exist (or is not visible to the caller).
var ErrNotFound = errors.New("order not found")

// ErrInvalidState is returned when the order is not in a state that allows
// the requested transition.
var ErrInvalidState = errors.New("invalid order state")

// OutOfStockError reports the first order line whose variant could not be
// reserved during confirmation.
type OutOfStockError struct {
	Title string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %s", e.Title)
}

// Querier captures the database methods required by the order service.
type Querier interface {
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
	GetOrderByIDForUser(ctx context.Context, arg db.GetOrderByIDForUserParams) (db.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error)
	DecrementVariantStock(ctx context.Context, arg db.DecrementVariantStockParams) (int64, error)
	UpdateOrderStatusIfCurrent(ctx context.Context, arg db.UpdateOrderStatusIfCurrentParams) (int64, error)
	UpdatePaymentStatus(ctx context.Context, arg db.UpdatePaymentStatusParams) error
	ClearCartItems(ctx context.Context, cartID pgtype.UUID) error
	UpdateCartCoupon(ctx context.Context, arg db.UpdateCartCouponParams) error
}

// Service drives the order lifecycle after placement.
type Service struct {
	Q       Querier
	Pool    *pgxpool.Pool
	Coupons *coupon.Service
	Events  *events.Bus
}

// Confirm finalizes a pending order: stock is reserved line by line with a
// conditional decrement, the order moves PENDING_PAYMENT -> PAID under a
// compare-and-set, and the originating cart is emptied. Coupon settlement
// runs after commit and is best-effort; a failed ledger write is logged but
// never unwinds the order.
func (s *Service) Confirm(ctx context.Context, orderID string) (db.Order, error) {
	if s == nil || s.Q == nil {
		return db.Order{}, errors.New("order service not configured")
	}
	oID, err := common.ParsePgUUID(orderID)
	if err != nil {
		return db.Order{}, fmt.Errorf("parse order id: %w", err)
	}

	var ord db.Order
	if s.Pool != nil {
		tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return db.Order{}, err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		ord, err = s.finalize(ctx, db.New(tx), oID)
		if err != nil {
			return db.Order{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return db.Order{}, err
		}
	} else {
		ord, err = s.finalize(ctx, s.Q, oID)
		if err != nil {
			return db.Order{}, err
		}
	}

	s.settleCoupon(ctx, ord)
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderPaid, ord.ID, map[string]any{
			"orderId": common.UUIDString(ord.ID),
			"userId":  common.UUIDString(ord.UserID),
			"total":   ord.PricingTotal,
		})
	}
	return ord, nil
}

func (s *Service) finalize(ctx context.Context, q Querier, oID pgtype.UUID) (db.Order, error) {
	ord, err := q.GetOrderByID(ctx, oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Order{}, ErrNotFound
		}
		return db.Order{}, err
	}
	if ord.Status != db.OrderStatusPendingPayment {
		return db.Order{}, fmt.Errorf("order is %s: %w", ord.Status, ErrInvalidState)
	}
	items, err := q.ListOrderItemsByOrder(ctx, ord.ID)
	if err != nil {
		return db.Order{}, err
	}

	for _, it := range items {
		if !it.VariantID.Valid {
			continue
		}
		rows, err := q.DecrementVariantStock(ctx, db.DecrementVariantStockParams{
			ID:  it.VariantID,
			Qty: it.Qty,
		})
		if err != nil {
			return db.Order{}, err
		}
		if rows == 0 {
			obs.ObserveStockConflict()
			return db.Order{}, &OutOfStockError{Title: it.Title}
		}
	}

	rows, err := q.UpdateOrderStatusIfCurrent(ctx, db.UpdateOrderStatusIfCurrentParams{
		ID:      ord.ID,
		Status:  db.OrderStatusPaid,
		Current: db.OrderStatusPendingPayment,
	})
	if err != nil {
		return db.Order{}, err
	}
	if rows == 0 {
		return db.Order{}, fmt.Errorf("order changed concurrently: %w", ErrInvalidState)
	}
	if err := q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{
		OrderID: ord.ID,
		Status:  "PAID",
	}); err != nil {
		return db.Order{}, err
	}
	if ord.CartID.Valid {
		if err := q.ClearCartItems(ctx, ord.CartID); err != nil {
			return db.Order{}, err
		}
		if err := q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: ord.CartID}); err != nil {
			return db.Order{}, err
		}
	}
	ord.Status = db.OrderStatusPaid
	return ord, nil
}

// Cancel moves a pending order to CANCELED on behalf of its owner.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) error {
	if s == nil || s.Q == nil {
		return errors.New("order service not configured")
	}
	oID, err := common.ParsePgUUID(orderID)
	if err != nil {
		return fmt.Errorf("parse order id: %w", err)
	}
	uID, err := common.ParsePgUUID(userID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	ord, err := s.Q.GetOrderByIDForUser(ctx, db.GetOrderByIDForUserParams{ID: oID, UserID: uID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	rows, err := s.Q.UpdateOrderStatusIfCurrent(ctx, db.UpdateOrderStatusIfCurrentParams{
		ID:      ord.ID,
		Status:  db.OrderStatusCanceled,
		Current: db.OrderStatusPendingPayment,
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("only pending orders can be canceled: %w", ErrInvalidState)
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCanceled, ord.ID, map[string]any{
			"orderId": common.UUIDString(ord.ID),
			"userId":  common.UUIDString(ord.UserID),
		})
	}
	return nil
}

func (s *Service) settleCoupon(ctx context.Context, ord db.Order) {
	if s.Coupons == nil || !ord.CouponCode.Valid || ord.CouponCode.String == "" {
		return
	}
	if err := s.Coupons.Settle(ctx, ord.CouponCode.String, ord.UserID, ord.ID); err != nil {
		obs.ObserveCouponSettlement("error")
		log.Ctx(ctx).Error().Err(err).
			Str("code", ord.CouponCode.String).
			Str("orderId", common.UUIDString(ord.ID)).
			Msg("coupon settlement failed; order remains confirmed")
		return
	}
	obs.ObserveCouponSettlement("ok")
}

func statusRank(status db.OrderStatus) int {
	switch status {
	case db.OrderStatusPendingPayment:
		return 0
	case db.OrderStatusPaid:
		return 1
	case db.OrderStatusProcessing:
		return 2
	case db.OrderStatusShipped:
		return 3
	case db.OrderStatusCompleted:
		return 4
	case db.OrderStatusCanceled:
		return -1
	default:
		return -2
	}
}
