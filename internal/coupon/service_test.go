package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

type stubQueries struct {
	coupon       db.Coupon
	coupons      []db.Coupon
	couponErr    error
	globalCount  int64
	userCount    int64
	countErr     error
	usageByOrder error
	insertErr    error
	inserted     []db.InsertCouponUsageParams
}

func (s *stubQueries) GetCouponByCode(ctx context.Context, code string) (db.Coupon, error) {
	if s.couponErr != nil {
		return db.Coupon{}, s.couponErr
	}
	if s.coupon.Code == "" {
		return db.Coupon{}, pgx.ErrNoRows
	}
	return s.coupon, nil
}

func (s *stubQueries) ListCoupons(ctx context.Context) ([]db.Coupon, error) {
	if s.couponErr != nil {
		return nil, s.couponErr
	}
	return s.coupons, nil
}

func (s *stubQueries) CountCouponUsage(ctx context.Context, couponID pgtype.UUID) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.globalCount, nil
}

func (s *stubQueries) CountCouponUsageByUser(ctx context.Context, arg db.CountCouponUsageByUserParams) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.userCount, nil
}

func (s *stubQueries) GetCouponUsageByOrder(ctx context.Context, arg db.GetCouponUsageByOrderParams) (db.CouponUsage, error) {
	if s.usageByOrder != nil {
		return db.CouponUsage{}, s.usageByOrder
	}
	return db.CouponUsage{CouponID: arg.CouponID, OrderID: arg.OrderID}, nil
}

func (s *stubQueries) InsertCouponUsage(ctx context.Context, arg db.InsertCouponUsageParams) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, arg)
	return nil
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func newCoupon() db.Coupon {
	return db.Coupon{
		ID:                  uuidToPg(uuid.New()),
		Code:                "SALE10",
		DiscountPercent:     10,
		MaxUsagePerCustomer: 1,
		AppliesTo:           db.CouponScopeAll,
		ValidFrom:           pgtype.Timestamptz{Time: testNow.Add(-24 * time.Hour), Valid: true},
		ValidTo:             pgtype.Timestamptz{Time: testNow.Add(24 * time.Hour), Valid: true},
		Active:              true,
	}
}

func newService(q Querier) *Service {
	return &Service{Q: q, Now: func() time.Time { return testNow }}
}

func cartItems(amount int64) []Item {
	return []Item{{CategoryID: uuid.New(), Subtotal: amount}}
}

func TestEvaluateUnknownCode(t *testing.T) {
	svc := newService(&stubQueries{})
	_, err := svc.Evaluate(context.Background(), "NOPE", pgtype.UUID{}, cartItems(10_000))
	if !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
}

func TestEvaluateExpiredWinsOverInactive(t *testing.T) {
	c := newCoupon()
	c.ValidTo = pgtype.Timestamptz{Time: testNow.Add(-time.Hour), Valid: true}
	c.Active = false
	svc := newService(&stubQueries{coupon: c})
	_, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(10_000))
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestEvaluateUpcoming(t *testing.T) {
	c := newCoupon()
	c.ValidFrom = pgtype.Timestamptz{Time: testNow.Add(time.Hour), Valid: true}
	svc := newService(&stubQueries{coupon: c})
	_, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(10_000))
	if !errors.Is(err, ErrUpcoming) {
		t.Fatalf("expected ErrUpcoming, got %v", err)
	}
}

func TestEvaluateInactive(t *testing.T) {
	c := newCoupon()
	c.Active = false
	svc := newService(&stubQueries{coupon: c})
	_, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(10_000))
	if !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestEvaluateNotApplicableScopedCart(t *testing.T) {
	c := newCoupon()
	c.AppliesTo = db.CouponScopeCategory
	c.CategoryIds = []pgtype.UUID{uuidToPg(uuid.New())}
	svc := newService(&stubQueries{coupon: c})
	_, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(10_000))
	if !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
}

func TestEvaluateScopedDiscountUsesEligibleOnly(t *testing.T) {
	catX := uuid.New()
	c := newCoupon()
	c.AppliesTo = db.CouponScopeCategory
	c.CategoryIds = []pgtype.UUID{uuidToPg(catX)}
	svc := newService(&stubQueries{coupon: c})
	items := []Item{
		{CategoryID: catX, Subtotal: 60_000},
		{CategoryID: uuid.New(), Subtotal: 40_000},
	}
	result, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, items)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.EligibleSubtotal != 60_000 {
		t.Fatalf("eligible = %d, want 60000", result.EligibleSubtotal)
	}
	if result.Discount != 6_000 {
		t.Fatalf("discount = %d, want 6000", result.Discount)
	}
}

func TestEvaluateBelowMinimumThenAccepted(t *testing.T) {
	c := newCoupon()
	c.MinPurchaseAmount = 50_000
	svc := newService(&stubQueries{coupon: c})

	_, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(40_000))
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}

	result, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(50_000))
	if err != nil {
		t.Fatalf("Evaluate() at threshold error: %v", err)
	}
	if result.Discount != 5_000 {
		t.Fatalf("discount = %d, want 5000", result.Discount)
	}
}

func TestEvaluateMaxDiscountCap(t *testing.T) {
	c := newCoupon()
	c.MaxDiscountAmount = 5_000
	svc := newService(&stubQueries{coupon: c})
	result, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(100_000))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Discount != 5_000 {
		t.Fatalf("discount = %d, want capped 5000", result.Discount)
	}
}

func TestEvaluateCustomerCapReached(t *testing.T) {
	svc := newService(&stubQueries{coupon: newCoupon(), userCount: 1})
	_, err := svc.Evaluate(context.Background(), "SALE10", uuidToPg(uuid.New()), cartItems(10_000))
	if !errors.Is(err, ErrCustomerCapReached) {
		t.Fatalf("expected ErrCustomerCapReached, got %v", err)
	}
}

func TestEvaluateGlobalCapReached(t *testing.T) {
	c := newCoupon()
	c.MaxUsageCount = 100
	svc := newService(&stubQueries{coupon: c, globalCount: 100})
	_, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(10_000))
	if !errors.Is(err, ErrGlobalCapReached) {
		t.Fatalf("expected ErrGlobalCapReached, got %v", err)
	}
}

func TestEvaluateAnonymousSkipsCustomerCap(t *testing.T) {
	// userCount would trip the per-customer cap, but anonymous sessions only
	// face the global cap.
	svc := newService(&stubQueries{coupon: newCoupon(), userCount: 5})
	result, err := svc.Evaluate(context.Background(), "SALE10", pgtype.UUID{}, cartItems(10_000))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Discount != 1_000 {
		t.Fatalf("discount = %d, want 1000", result.Discount)
	}
}

func TestSettleWritesOnce(t *testing.T) {
	stub := &stubQueries{coupon: newCoupon(), usageByOrder: pgx.ErrNoRows}
	svc := newService(stub)
	orderID := uuidToPg(uuid.New())
	userID := uuidToPg(uuid.New())
	if err := svc.Settle(context.Background(), "SALE10", userID, orderID); err != nil {
		t.Fatalf("Settle() error: %v", err)
	}
	if len(stub.inserted) != 1 {
		t.Fatalf("inserted %d usage rows, want 1", len(stub.inserted))
	}
	if stub.inserted[0].OrderID != orderID {
		t.Fatal("usage row recorded against wrong order")
	}
}

func TestSettleExistingEntryIsNoop(t *testing.T) {
	stub := &stubQueries{coupon: newCoupon()}
	svc := newService(stub)
	if err := svc.Settle(context.Background(), "SALE10", uuidToPg(uuid.New()), uuidToPg(uuid.New())); err != nil {
		t.Fatalf("Settle() error: %v", err)
	}
	if len(stub.inserted) != 0 {
		t.Fatalf("inserted %d usage rows, want 0", len(stub.inserted))
	}
}

func TestSettleSwallowsUniqueViolation(t *testing.T) {
	stub := &stubQueries{
		coupon:       newCoupon(),
		usageByOrder: pgx.ErrNoRows,
		insertErr:    &pgconn.PgError{Code: "23505"},
	}
	svc := newService(stub)
	if err := svc.Settle(context.Background(), "SALE10", uuidToPg(uuid.New()), uuidToPg(uuid.New())); err != nil {
		t.Fatalf("Settle() should swallow unique violations, got %v", err)
	}
}

func TestSettleVanishedCouponIsNoop(t *testing.T) {
	svc := newService(&stubQueries{})
	if err := svc.Settle(context.Background(), "GONE", uuidToPg(uuid.New()), uuidToPg(uuid.New())); err != nil {
		t.Fatalf("Settle() with unknown code should be a no-op, got %v", err)
	}
}

func TestAvailableKeepsUpcomingDropsClosed(t *testing.T) {
	active := newCoupon()
	upcoming := newCoupon()
	upcoming.Code = "SOON20"
	upcoming.ValidFrom = pgtype.Timestamptz{Time: testNow.Add(time.Hour), Valid: true}
	expired := newCoupon()
	expired.Code = "GONE30"
	expired.ValidTo = pgtype.Timestamptz{Time: testNow.Add(-time.Hour), Valid: true}
	disabled := newCoupon()
	disabled.Code = "OFF40"
	disabled.Active = false

	svc := newService(&stubQueries{coupons: []db.Coupon{active, upcoming, expired, disabled}})
	got, err := svc.Available(context.Background(), pgtype.UUID{})
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	codes := make([]string, 0, len(got))
	for _, c := range got {
		codes = append(codes, c.Code)
	}
	if len(codes) != 2 || codes[0] != "SALE10" || codes[1] != "SOON20" {
		t.Fatalf("expected [SALE10 SOON20], got %v", codes)
	}
}

func TestAvailableHidesGloballyExhaustedCoupon(t *testing.T) {
	c := newCoupon()
	c.MaxUsageCount = 5
	svc := newService(&stubQueries{coupons: []db.Coupon{c}, globalCount: 5})
	got, err := svc.Available(context.Background(), pgtype.UUID{})
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("globally exhausted coupon should be hidden, got %d coupons", len(got))
	}
}

func TestAvailablePerCustomerCapOnlyAppliesToIdentifiedUsers(t *testing.T) {
	stub := &stubQueries{coupons: []db.Coupon{newCoupon()}, userCount: 1}
	svc := newService(stub)

	got, err := svc.Available(context.Background(), uuidToPg(uuid.New()))
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("customer at their cap should not see the coupon, got %d", len(got))
	}

	got, err = svc.Available(context.Background(), pgtype.UUID{})
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("anonymous caller should still see the coupon, got %d", len(got))
	}
}
