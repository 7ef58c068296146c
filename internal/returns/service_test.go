package returns

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubQuerier struct {
	order    db.Order
	items    []db.OrderItem
	ret      db.ReturnRequest
	open     int64
	created  []db.CreateReturnRequestParams
	updates  []db.UpdateReturnStatusParams
	restocks []db.IncrementVariantStockParams
}

func (s *stubQuerier) GetOrderByIDForUser(ctx context.Context, arg db.GetOrderByIDForUserParams) (db.Order, error) {
	if !s.order.ID.Valid || s.order.UserID != arg.UserID {
		return db.Order{}, pgx.ErrNoRows
	}
	return s.order, nil
}

func (s *stubQuerier) ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error) {
	return s.items, nil
}

func (s *stubQuerier) CreateReturnRequest(ctx context.Context, arg db.CreateReturnRequestParams) (db.ReturnRequest, error) {
	s.created = append(s.created, arg)
	return db.ReturnRequest{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		ReturnNumber: arg.ReturnNumber,
		OrderID:      arg.OrderID,
		UserID:       arg.UserID,
		ReturnType:   arg.ReturnType,
		Reason:       arg.Reason,
		Status:       db.ReturnStatusPending,
		RefundAmount: arg.RefundAmount,
	}, nil
}

func (s *stubQuerier) GetReturnByID(ctx context.Context, id pgtype.UUID) (db.ReturnRequest, error) {
	if !s.ret.ID.Valid {
		return db.ReturnRequest{}, pgx.ErrNoRows
	}
	return s.ret, nil
}

func (s *stubQuerier) CountOpenReturnsForOrder(ctx context.Context, orderID pgtype.UUID) (int64, error) {
	return s.open, nil
}

func (s *stubQuerier) ListReturnsForUser(ctx context.Context, arg db.ListReturnsForUserParams) ([]db.ReturnRequest, error) {
	return nil, nil
}

func (s *stubQuerier) ListReturns(ctx context.Context, arg db.ListReturnsParams) ([]db.ReturnRequest, error) {
	return nil, nil
}

func (s *stubQuerier) UpdateReturnStatus(ctx context.Context, arg db.UpdateReturnStatusParams) (db.ReturnRequest, error) {
	s.updates = append(s.updates, arg)
	updated := s.ret
	updated.Status = arg.Status
	updated.RefundAmount = arg.RefundAmount
	s.ret = updated
	return updated, nil
}

func (s *stubQuerier) IncrementVariantStock(ctx context.Context, arg db.IncrementVariantStockParams) error {
	s.restocks = append(s.restocks, arg)
	return nil
}

func completedOrder() db.Order {
	return db.Order{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		UserID:       pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Status:       db.OrderStatusCompleted,
		PricingTotal: 108_000,
		UpdatedAt:    pgtype.Timestamptz{Time: testNow.Add(-3 * 24 * time.Hour), Valid: true},
	}
}

func newTestService(q *stubQuerier) *Service {
	return &Service{Q: q, Now: func() time.Time { return testNow }}
}

func TestCreateRefundDefaultsToOrderTotal(t *testing.T) {
	q := &stubQuerier{order: completedOrder()}
	svc := newTestService(q)
	ret, err := svc.Create(context.Background(), uuid.UUID(q.order.UserID.Bytes).String(), CreateInput{
		OrderID:    uuid.UUID(q.order.ID.Bytes).String(),
		ReturnType: "refund",
		Reason:     "damaged on arrival",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if ret.RefundAmount != 108_000 {
		t.Fatalf("refund = %d, want order total", ret.RefundAmount)
	}
	if !strings.HasPrefix(ret.ReturnNumber, "RET-20260301-") {
		t.Fatalf("unexpected return number %q", ret.ReturnNumber)
	}
	if ret.ReturnType != ReturnTypeRefund {
		t.Fatalf("type = %q, want REFUND", ret.ReturnType)
	}
}

func TestCreateRejectsSecondOpenReturn(t *testing.T) {
	q := &stubQuerier{order: completedOrder(), open: 1}
	svc := newTestService(q)
	_, err := svc.Create(context.Background(), uuid.UUID(q.order.UserID.Bytes).String(), CreateInput{
		OrderID:    uuid.UUID(q.order.ID.Bytes).String(),
		ReturnType: "REFUND",
		Reason:     "wrong size",
	})
	if !errors.Is(err, ErrOpenReturnExists) {
		t.Fatalf("expected ErrOpenReturnExists, got %v", err)
	}
	if len(q.created) != 0 {
		t.Fatal("no return should be created")
	}
}

func TestCreateRequiresReturnableOrder(t *testing.T) {
	q := &stubQuerier{order: completedOrder()}
	q.order.Status = db.OrderStatusPendingPayment
	svc := newTestService(q)
	_, err := svc.Create(context.Background(), uuid.UUID(q.order.UserID.Bytes).String(), CreateInput{
		OrderID:    uuid.UUID(q.order.ID.Bytes).String(),
		ReturnType: "EXCHANGE",
		Reason:     "wrong color",
	})
	if !errors.Is(err, ErrOrderNotEligible) {
		t.Fatalf("expected ErrOrderNotEligible, got %v", err)
	}
}

func TestCreateRejectsClosedWindow(t *testing.T) {
	q := &stubQuerier{order: completedOrder()}
	q.order.UpdatedAt = pgtype.Timestamptz{Time: testNow.Add(-15 * 24 * time.Hour), Valid: true}
	svc := newTestService(q)
	_, err := svc.Create(context.Background(), uuid.UUID(q.order.UserID.Bytes).String(), CreateInput{
		OrderID:    uuid.UUID(q.order.ID.Bytes).String(),
		ReturnType: "REFUND",
		Reason:     "changed my mind",
	})
	if !errors.Is(err, ErrOrderNotEligible) {
		t.Fatalf("expected ErrOrderNotEligible, got %v", err)
	}
}

func TestCreateScopedToOwner(t *testing.T) {
	q := &stubQuerier{order: completedOrder()}
	svc := newTestService(q)
	_, err := svc.Create(context.Background(), uuid.NewString(), CreateInput{
		OrderID:    uuid.UUID(q.order.ID.Bytes).String(),
		ReturnType: "REFUND",
		Reason:     "damaged",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func pendingReturn(orderID pgtype.UUID) db.ReturnRequest {
	return db.ReturnRequest{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		ReturnNumber: "RET-20260301-ABCD1234",
		OrderID:      orderID,
		ReturnType:   ReturnTypeRefund,
		Status:       db.ReturnStatusPending,
		RefundAmount: 108_000,
	}
}

func TestDecideApprovalRestoresStock(t *testing.T) {
	variant := uuid.New()
	order := completedOrder()
	q := &stubQuerier{
		order: order,
		ret:   pendingReturn(order.ID),
		items: []db.OrderItem{{
			VariantID: pgtype.UUID{Bytes: variant, Valid: true},
			Qty:       2,
		}},
	}
	svc := newTestService(q)
	updated, err := svc.Decide(context.Background(), uuid.NewString(), uuid.UUID(q.ret.ID.Bytes).String(), DecideInput{
		Status: "approved",
	})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if updated.Status != db.ReturnStatusApproved {
		t.Fatalf("status = %s, want APPROVED", updated.Status)
	}
	if len(q.restocks) != 1 || q.restocks[0].Qty != 2 {
		t.Fatalf("expected one restock of qty 2, got %+v", q.restocks)
	}
}

func TestDecideRejectionSkipsRestock(t *testing.T) {
	order := completedOrder()
	q := &stubQuerier{order: order, ret: pendingReturn(order.ID)}
	svc := newTestService(q)
	updated, err := svc.Decide(context.Background(), uuid.NewString(), uuid.UUID(q.ret.ID.Bytes).String(), DecideInput{
		Status:    "REJECTED",
		AdminNote: "outside the return window",
	})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if updated.Status != db.ReturnStatusRejected {
		t.Fatalf("status = %s, want REJECTED", updated.Status)
	}
	if len(q.restocks) != 0 {
		t.Fatal("rejection must not restock")
	}
}

func TestDecideEnforcesLifecycle(t *testing.T) {
	order := completedOrder()
	q := &stubQuerier{order: order, ret: pendingReturn(order.ID)}
	q.ret.Status = db.ReturnStatusCompleted
	svc := newTestService(q)
	_, err := svc.Decide(context.Background(), uuid.NewString(), uuid.UUID(q.ret.ID.Bytes).String(), DecideInput{
		Status: "APPROVED",
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDecideOverridesRefundAmount(t *testing.T) {
	order := completedOrder()
	q := &stubQuerier{order: order, ret: pendingReturn(order.ID)}
	partial := int64(50_000)
	updated, err := newTestService(q).Decide(context.Background(), uuid.NewString(), uuid.UUID(q.ret.ID.Bytes).String(), DecideInput{
		Status:       "APPROVED",
		RefundAmount: &partial,
	})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if updated.RefundAmount != 50_000 {
		t.Fatalf("refund = %d, want 50000", updated.RefundAmount)
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to db.ReturnStatus
		ok       bool
	}{
		{db.ReturnStatusPending, db.ReturnStatusApproved, true},
		{db.ReturnStatusPending, db.ReturnStatusRejected, true},
		{db.ReturnStatusPending, db.ReturnStatusCompleted, false},
		{db.ReturnStatusApproved, db.ReturnStatusProcessing, true},
		{db.ReturnStatusApproved, db.ReturnStatusCompleted, true},
		{db.ReturnStatusProcessing, db.ReturnStatusCompleted, true},
		{db.ReturnStatusRejected, db.ReturnStatusApproved, false},
		{db.ReturnStatusCompleted, db.ReturnStatusProcessing, false},
	}
	for _, tc := range cases {
		if got := transitionAllowed(tc.from, tc.to); got != tc.ok {
			t.Errorf("transitionAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
