package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/coupon"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubQuerier struct {
	cart          db.Cart
	items         []db.CartItem
	categories    []db.CartItemCategoryRow
	product       db.ProductForCartRow
	productErr    error
	created       []db.CreateCartItemParams
	couponUpdates []db.UpdateCartCouponParams
}

func (s *stubQuerier) CreateCart(ctx context.Context, arg db.CreateCartParams) (db.Cart, error) {
	return db.Cart{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, UserID: arg.UserID, AnonID: arg.AnonID}, nil
}

func (s *stubQuerier) GetCartByID(ctx context.Context, id pgtype.UUID) (db.Cart, error) {
	if !s.cart.ID.Valid {
		return db.Cart{}, pgx.ErrNoRows
	}
	return s.cart, nil
}

func (s *stubQuerier) GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (db.Cart, error) {
	if !s.cart.ID.Valid {
		return db.Cart{}, pgx.ErrNoRows
	}
	return s.cart, nil
}

func (s *stubQuerier) GetActiveCartByAnon(ctx context.Context, anonID pgtype.Text) (db.Cart, error) {
	if !s.cart.ID.Valid {
		return db.Cart{}, pgx.ErrNoRows
	}
	return s.cart, nil
}

func (s *stubQuerier) TouchCart(ctx context.Context, arg db.TouchCartParams) error { return nil }

func (s *stubQuerier) TransferCartToUser(ctx context.Context, arg db.TransferCartToUserParams) error {
	return nil
}

func (s *stubQuerier) UpdateCartCoupon(ctx context.Context, arg db.UpdateCartCouponParams) error {
	s.couponUpdates = append(s.couponUpdates, arg)
	return nil
}

func (s *stubQuerier) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]db.CartItem, error) {
	return s.items, nil
}

func (s *stubQuerier) FindCartItemByProductVariant(ctx context.Context, arg db.FindCartItemByProductVariantParams) (db.CartItem, error) {
	return db.CartItem{}, pgx.ErrNoRows
}

func (s *stubQuerier) GetCartItemByID(ctx context.Context, id pgtype.UUID) (db.CartItem, error) {
	return db.CartItem{}, pgx.ErrNoRows
}

func (s *stubQuerier) CreateCartItem(ctx context.Context, arg db.CreateCartItemParams) (db.CartItem, error) {
	s.created = append(s.created, arg)
	return db.CartItem{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}}, nil
}

func (s *stubQuerier) UpdateCartItemQty(ctx context.Context, arg db.UpdateCartItemQtyParams) (db.CartItem, error) {
	return db.CartItem{ID: arg.ID, Qty: arg.Qty, Subtotal: arg.Subtotal}, nil
}

func (s *stubQuerier) DeleteCartItem(ctx context.Context, arg db.DeleteCartItemParams) error {
	return nil
}

func (s *stubQuerier) GetProductForCart(ctx context.Context, arg db.GetProductForCartParams) (db.ProductForCartRow, error) {
	if s.productErr != nil {
		return db.ProductForCartRow{}, s.productErr
	}
	return s.product, nil
}

func (s *stubQuerier) ListCartItemCategories(ctx context.Context, cartID pgtype.UUID) ([]db.CartItemCategoryRow, error) {
	return s.categories, nil
}

type stubCouponQuerier struct {
	coupon db.Coupon
}

func (s *stubCouponQuerier) GetCouponByCode(ctx context.Context, code string) (db.Coupon, error) {
	if s.coupon.Code == "" {
		return db.Coupon{}, pgx.ErrNoRows
	}
	return s.coupon, nil
}

func (s *stubCouponQuerier) ListCoupons(ctx context.Context) ([]db.Coupon, error) {
	if s.coupon.Code == "" {
		return nil, nil
	}
	return []db.Coupon{s.coupon}, nil
}

func (s *stubCouponQuerier) CountCouponUsage(ctx context.Context, couponID pgtype.UUID) (int64, error) {
	return 0, nil
}

func (s *stubCouponQuerier) CountCouponUsageByUser(ctx context.Context, arg db.CountCouponUsageByUserParams) (int64, error) {
	return 0, nil
}

func (s *stubCouponQuerier) GetCouponUsageByOrder(ctx context.Context, arg db.GetCouponUsageByOrderParams) (db.CouponUsage, error) {
	return db.CouponUsage{}, pgx.ErrNoRows
}

func (s *stubCouponQuerier) InsertCouponUsage(ctx context.Context, arg db.InsertCouponUsageParams) error {
	return nil
}

func validCoupon() db.Coupon {
	return db.Coupon{
		ID:              pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Code:            "SALE10",
		DiscountPercent: 10,
		AppliesTo:       db.CouponScopeAll,
		ValidFrom:       pgtype.Timestamptz{Time: testNow.Add(-time.Hour), Valid: true},
		ValidTo:         pgtype.Timestamptz{Time: testNow.Add(time.Hour), Valid: true},
		Active:          true,
	}
}

func newTestService(q *stubQuerier, cq *stubCouponQuerier) *Service {
	now := func() time.Time { return testNow }
	return &Service{
		Q:       q,
		Coupons: &coupon.Service{Q: cq, Now: now},
		TaxBps:  800,
		Now:     now,
	}
}

func testCart() db.Cart {
	return db.Cart{
		ID:     pgtype.UUID{Bytes: uuid.New(), Valid: true},
		UserID: pgtype.UUID{Bytes: uuid.New(), Valid: true},
	}
}

func TestPriceWithoutCoupon(t *testing.T) {
	q := &stubQuerier{
		cart:  testCart(),
		items: []db.CartItem{{Qty: 2, UnitPrice: 30_000, Subtotal: 60_000}, {Qty: 1, UnitPrice: 40_000, Subtotal: 40_000}},
	}
	svc := newTestService(q, &stubCouponQuerier{})
	priced, items, err := svc.Price(context.Background(), q.cart)
	if err != nil {
		t.Fatalf("Price() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if priced.Summary.Subtotal != 100_000 || priced.Summary.Tax != 8_000 || priced.Summary.Total != 108_000 {
		t.Fatalf("unexpected summary %+v", priced.Summary)
	}
}

func TestPriceAppliesStoredCoupon(t *testing.T) {
	cart := testCart()
	cart.AppliedCouponCode = pgtype.Text{String: "SALE10", Valid: true}
	q := &stubQuerier{
		cart:       cart,
		items:      []db.CartItem{{Qty: 1, UnitPrice: 100_000, Subtotal: 100_000}},
		categories: []db.CartItemCategoryRow{{CategoryID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Subtotal: 100_000}},
	}
	svc := newTestService(q, &stubCouponQuerier{coupon: validCoupon()})
	priced, _, err := svc.Price(context.Background(), cart)
	if err != nil {
		t.Fatalf("Price() error: %v", err)
	}
	if priced.Summary.Discount != 10_000 {
		t.Fatalf("discount = %d, want 10000", priced.Summary.Discount)
	}
	if priced.Summary.Total != 97_200 {
		t.Fatalf("total = %d, want 97200", priced.Summary.Total)
	}
	if priced.CouponCode != "SALE10" {
		t.Fatalf("coupon code = %q, want SALE10", priced.CouponCode)
	}
}

func TestPriceDropsStaleCouponSilently(t *testing.T) {
	cart := testCart()
	cart.AppliedCouponCode = pgtype.Text{String: "GONE", Valid: true}
	q := &stubQuerier{
		cart:       cart,
		items:      []db.CartItem{{Qty: 1, UnitPrice: 50_000, Subtotal: 50_000}},
		categories: []db.CartItemCategoryRow{{Subtotal: 50_000}},
	}
	svc := newTestService(q, &stubCouponQuerier{})
	priced, _, err := svc.Price(context.Background(), cart)
	if err != nil {
		t.Fatalf("Price() must not fail on a vanished coupon: %v", err)
	}
	if priced.Summary.Discount != 0 {
		t.Fatalf("discount = %d, want 0", priced.Summary.Discount)
	}
	if !priced.CouponDropped {
		t.Fatal("expected CouponDropped to be set")
	}
	if len(q.couponUpdates) != 1 || q.couponUpdates[0].AppliedCouponCode.Valid {
		t.Fatalf("expected one clearing coupon update, got %+v", q.couponUpdates)
	}
}

func TestPriceDropsExpiredCouponSilently(t *testing.T) {
	expired := validCoupon()
	expired.ValidTo = pgtype.Timestamptz{Time: testNow.Add(-time.Minute), Valid: true}
	cart := testCart()
	cart.AppliedCouponCode = pgtype.Text{String: "SALE10", Valid: true}
	q := &stubQuerier{
		cart:       cart,
		items:      []db.CartItem{{Qty: 1, UnitPrice: 50_000, Subtotal: 50_000}},
		categories: []db.CartItemCategoryRow{{Subtotal: 50_000}},
	}
	svc := newTestService(q, &stubCouponQuerier{coupon: expired})
	priced, _, err := svc.Price(context.Background(), cart)
	if err != nil {
		t.Fatalf("Price() must not fail on an expired coupon: %v", err)
	}
	if priced.Summary.Discount != 0 || !priced.CouponDropped {
		t.Fatalf("expected silent drop, got %+v", priced)
	}
}

func TestApplyCouponStoresSelection(t *testing.T) {
	q := &stubQuerier{
		cart:       testCart(),
		categories: []db.CartItemCategoryRow{{Subtotal: 100_000}},
	}
	svc := newTestService(q, &stubCouponQuerier{coupon: validCoupon()})
	result, err := svc.ApplyCoupon(context.Background(), uuid.New().String(), "sale10")
	if err != nil {
		t.Fatalf("ApplyCoupon() error: %v", err)
	}
	if result.Discount != 10_000 {
		t.Fatalf("discount = %d, want 10000", result.Discount)
	}
	if len(q.couponUpdates) != 1 || q.couponUpdates[0].AppliedCouponCode.String != "SALE10" {
		t.Fatalf("expected coupon stored as SALE10, got %+v", q.couponUpdates)
	}
}

func TestApplyCouponRejectionNotStored(t *testing.T) {
	below := validCoupon()
	below.MinPurchaseAmount = 500_000
	q := &stubQuerier{
		cart:       testCart(),
		categories: []db.CartItemCategoryRow{{Subtotal: 100_000}},
	}
	svc := newTestService(q, &stubCouponQuerier{coupon: below})
	_, err := svc.ApplyCoupon(context.Background(), uuid.New().String(), "SALE10")
	if !errors.Is(err, coupon.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if len(q.couponUpdates) != 0 {
		t.Fatalf("rejected coupon must not be stored, got %+v", q.couponUpdates)
	}
}

func TestAddItemRejectsOutOfStock(t *testing.T) {
	q := &stubQuerier{
		cart:    testCart(),
		product: db.ProductForCartRow{Title: "Shirt", Slug: "shirt", Price: 10_000, IsAvailable: true, Stock: 1},
	}
	svc := newTestService(q, &stubCouponQuerier{})
	err := svc.AddItem(context.Background(), uuid.NewString(), uuid.NewString(), uuid.NewString(), 2)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for insufficient stock, got %v", err)
	}
	if len(q.created) != 0 {
		t.Fatal("no cart line should be created")
	}
}

func TestAddItemSnapshotsPrice(t *testing.T) {
	q := &stubQuerier{
		cart:    testCart(),
		product: db.ProductForCartRow{Title: "Shirt", Slug: "shirt", Price: 10_000, IsAvailable: true, Stock: 5},
	}
	svc := newTestService(q, &stubCouponQuerier{})
	if err := svc.AddItem(context.Background(), uuid.NewString(), uuid.NewString(), uuid.NewString(), 3); err != nil {
		t.Fatalf("AddItem() error: %v", err)
	}
	if len(q.created) != 1 {
		t.Fatalf("created %d lines, want 1", len(q.created))
	}
	line := q.created[0]
	if line.UnitPrice != 10_000 || line.Subtotal != 30_000 || line.Qty != 3 {
		t.Fatalf("unexpected snapshot %+v", line)
	}
}

func TestEnsureCartCreatesForAnon(t *testing.T) {
	q := &stubQuerier{}
	svc := newTestService(q, &stubCouponQuerier{})
	anon := "session-1"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon)
	if err != nil {
		t.Fatalf("EnsureCart() error: %v", err)
	}
	if !cart.AnonID.Valid || cart.AnonID.String != anon {
		t.Fatalf("anon id not carried: %+v", cart)
	}
}

func TestEnsureCartRequiresIdentity(t *testing.T) {
	svc := newTestService(&stubQuerier{}, &stubCouponQuerier{})
	if _, err := svc.EnsureCart(context.Background(), nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
