package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/events"
)

// ErrNotFound indicates the return request or its order could not be found.
var ErrNotFound = errors.New("return not found")

// ErrInvalidInput is returned for malformed return payloads.
var ErrInvalidInput = errors.New("invalid input")

// ErrOrderNotEligible means the order is not in a returnable state.
var ErrOrderNotEligible = errors.New("order not eligible for return")

// ErrOpenReturnExists enforces at most one open return per order.
var ErrOpenReturnExists = errors.New("order already has an open return")

// ErrInvalidTransition is returned for a staff decision that does not follow
// the return lifecycle.
var ErrInvalidTransition = errors.New("invalid return transition")

// ReturnTypeRefund and ReturnTypeExchange are the supported return kinds.
const (
	ReturnTypeRefund   = "REFUND"
	ReturnTypeExchange = "EXCHANGE"
)

// Querier captures the database methods required by the returns service.
type Querier interface {
	GetOrderByIDForUser(ctx context.Context, arg db.GetOrderByIDForUserParams) (db.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error)
	CreateReturnRequest(ctx context.Context, arg db.CreateReturnRequestParams) (db.ReturnRequest, error)
	GetReturnByID(ctx context.Context, id pgtype.UUID) (db.ReturnRequest, error)
	CountOpenReturnsForOrder(ctx context.Context, orderID pgtype.UUID) (int64, error)
	ListReturnsForUser(ctx context.Context, arg db.ListReturnsForUserParams) ([]db.ReturnRequest, error)
	ListReturns(ctx context.Context, arg db.ListReturnsParams) ([]db.ReturnRequest, error)
	UpdateReturnStatus(ctx context.Context, arg db.UpdateReturnStatusParams) (db.ReturnRequest, error)
	IncrementVariantStock(ctx context.Context, arg db.IncrementVariantStockParams) error
}

// CreateInput is a customer's return request.
type CreateInput struct {
	OrderID     string `json:"orderId"`
	ReturnType  string `json:"returnType"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// DecideInput is a staff decision on a pending or in-flight return.
type DecideInput struct {
	Status       string `json:"status"`
	AdminNote    string `json:"adminNote"`
	RefundAmount *int64 `json:"refundAmount"`
}

// DefaultReturnWindow is how long after completion an order stays returnable.
const DefaultReturnWindow = 14 * 24 * time.Hour

// Service manages the post-sale return lifecycle.
type Service struct {
	Q      Querier
	Events *events.Bus
	Window time.Duration
	Now    func() time.Time
}

func (s *Service) window() time.Duration {
	if s != nil && s.Window > 0 {
		return s.Window
	}
	return DefaultReturnWindow
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens a return for one of the caller's orders. Only completed orders
// inside the return window qualify, and an order carries at most one open
// return at a time. The requested refund defaults to the order's frozen total.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (db.ReturnRequest, error) {
	if s == nil || s.Q == nil {
		return db.ReturnRequest{}, errors.New("returns service not configured")
	}
	returnType := strings.ToUpper(strings.TrimSpace(in.ReturnType))
	if returnType != ReturnTypeRefund && returnType != ReturnTypeExchange {
		return db.ReturnRequest{}, fmt.Errorf("returnType must be REFUND or EXCHANGE: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return db.ReturnRequest{}, fmt.Errorf("reason is required: %w", ErrInvalidInput)
	}
	oID, err := common.ParsePgUUID(in.OrderID)
	if err != nil {
		return db.ReturnRequest{}, fmt.Errorf("parse order id: %w", err)
	}
	uID, err := common.ParsePgUUID(userID)
	if err != nil {
		return db.ReturnRequest{}, fmt.Errorf("parse user id: %w", err)
	}
	ord, err := s.Q.GetOrderByIDForUser(ctx, db.GetOrderByIDForUserParams{ID: oID, UserID: uID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.ReturnRequest{}, ErrNotFound
		}
		return db.ReturnRequest{}, err
	}
	if ord.Status != db.OrderStatusCompleted {
		return db.ReturnRequest{}, fmt.Errorf("order is %s: %w", ord.Status, ErrOrderNotEligible)
	}
	// updated_at tracks the transition into COMPLETED.
	if ord.UpdatedAt.Valid && s.now().Sub(ord.UpdatedAt.Time) > s.window() {
		return db.ReturnRequest{}, fmt.Errorf("return window closed: %w", ErrOrderNotEligible)
	}
	open, err := s.Q.CountOpenReturnsForOrder(ctx, ord.ID)
	if err != nil {
		return db.ReturnRequest{}, err
	}
	if open > 0 {
		return db.ReturnRequest{}, ErrOpenReturnExists
	}

	refund := int64(0)
	if returnType == ReturnTypeRefund {
		refund = ord.PricingTotal
	}
	ret, err := s.Q.CreateReturnRequest(ctx, db.CreateReturnRequestParams{
		ReturnNumber: s.returnNumber(),
		OrderID:      ord.ID,
		UserID:       uID,
		ReturnType:   returnType,
		Reason:       strings.TrimSpace(in.Reason),
		Description:  common.PgText(strings.TrimSpace(in.Description)),
		RefundAmount: refund,
	})
	if err != nil {
		return db.ReturnRequest{}, err
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicReturnRequested, ret.ID, map[string]any{
			"returnId":     common.UUIDString(ret.ID),
			"returnNumber": ret.ReturnNumber,
			"orderId":      common.UUIDString(ord.ID),
			"userId":       userID,
		})
	}
	return ret, nil
}

// Decide applies a staff decision. Approval of a refund return restores
// variant stock for the order's lines; failures there are logged and retried
// by hand, they do not unwind the decision.
func (s *Service) Decide(ctx context.Context, staffID, returnID string, in DecideInput) (db.ReturnRequest, error) {
	if s == nil || s.Q == nil {
		return db.ReturnRequest{}, errors.New("returns service not configured")
	}
	rID, err := common.ParsePgUUID(returnID)
	if err != nil {
		return db.ReturnRequest{}, fmt.Errorf("parse return id: %w", err)
	}
	staff, err := common.ParsePgUUID(staffID)
	if err != nil {
		return db.ReturnRequest{}, fmt.Errorf("parse staff id: %w", err)
	}
	target := db.ReturnStatus(strings.ToUpper(strings.TrimSpace(in.Status)))

	ret, err := s.Q.GetReturnByID(ctx, rID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.ReturnRequest{}, ErrNotFound
		}
		return db.ReturnRequest{}, err
	}
	if !transitionAllowed(ret.Status, target) {
		return db.ReturnRequest{}, fmt.Errorf("%s -> %s: %w", ret.Status, target, ErrInvalidTransition)
	}

	refund := ret.RefundAmount
	if in.RefundAmount != nil {
		if *in.RefundAmount < 0 {
			return db.ReturnRequest{}, fmt.Errorf("refundAmount must not be negative: %w", ErrInvalidInput)
		}
		refund = *in.RefundAmount
	}
	updated, err := s.Q.UpdateReturnStatus(ctx, db.UpdateReturnStatusParams{
		ID:           ret.ID,
		Status:       target,
		AdminNote:    common.PgText(strings.TrimSpace(in.AdminNote)),
		RefundAmount: refund,
		ProcessedBy:  staff,
	})
	if err != nil {
		return db.ReturnRequest{}, err
	}

	if target == db.ReturnStatusApproved && updated.ReturnType == ReturnTypeRefund {
		s.restoreStock(ctx, updated)
	}
	if s.Events != nil && (target == db.ReturnStatusRejected || target == db.ReturnStatusCompleted) {
		_, _ = s.Events.Emit(ctx, events.TopicReturnResolved, updated.ID, map[string]any{
			"returnId":     common.UUIDString(updated.ID),
			"returnNumber": updated.ReturnNumber,
			"status":       string(updated.Status),
			"refundAmount": updated.RefundAmount,
		})
	}
	return updated, nil
}

// ListForUser pages the caller's return history.
func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int32) ([]db.ReturnRequest, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("returns service not configured")
	}
	uID, err := common.ParsePgUUID(userID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return s.Q.ListReturnsForUser(ctx, db.ListReturnsForUserParams{UserID: uID, Limit: limit, Offset: offset})
}

// ListQueue pages the staff review queue, optionally filtered by status.
func (s *Service) ListQueue(ctx context.Context, status string, limit, offset int32) ([]db.ReturnRequest, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("returns service not configured")
	}
	return s.Q.ListReturns(ctx, db.ListReturnsParams{
		Status: common.PgText(strings.ToUpper(strings.TrimSpace(status))),
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Service) restoreStock(ctx context.Context, ret db.ReturnRequest) {
	items, err := s.Q.ListOrderItemsByOrder(ctx, ret.OrderID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("returnNumber", ret.ReturnNumber).
			Msg("stock restore skipped: order items unavailable")
		return
	}
	for _, it := range items {
		if !it.VariantID.Valid {
			continue
		}
		if err := s.Q.IncrementVariantStock(ctx, db.IncrementVariantStockParams{ID: it.VariantID, Qty: it.Qty}); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("returnNumber", ret.ReturnNumber).
				Str("variantId", common.UUIDString(it.VariantID)).
				Msg("stock restore failed for line")
		}
	}
}

func (s *Service) returnNumber() string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("RET-%s-%s", s.now().Format("20060102"), suffix)
}

func transitionAllowed(from, to db.ReturnStatus) bool {
	switch from {
	case db.ReturnStatusPending:
		return to == db.ReturnStatusApproved || to == db.ReturnStatusRejected
	case db.ReturnStatusApproved:
		return to == db.ReturnStatusProcessing || to == db.ReturnStatusCompleted
	case db.ReturnStatusProcessing:
		return to == db.ReturnStatusCompleted
	default:
		return false
	}
}
