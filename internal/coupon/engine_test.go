package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func activeRule() Rule {
	return Rule{
		Code:      "SALE10",
		Percent:   10,
		Scope:     db.CouponScopeAll,
		ValidFrom: testNow.Add(-24 * time.Hour),
		ValidTo:   testNow.Add(24 * time.Hour),
		Active:    true,
	}
}

func TestStatusExpiredBeatsInactive(t *testing.T) {
	r := activeRule()
	r.ValidTo = testNow.Add(-time.Minute)
	r.Active = false
	if got := r.Status(testNow); got != StatusExpired {
		t.Fatalf("Status() = %q, want expired", got)
	}
}

func TestStatusExpiredAtBoundary(t *testing.T) {
	r := activeRule()
	r.ValidTo = testNow
	if got := r.Status(testNow); got != StatusExpired {
		t.Fatalf("Status() at valid_to = %q, want expired", got)
	}
}

func TestStatusUpcomingBeatsInactive(t *testing.T) {
	r := activeRule()
	r.ValidFrom = testNow.Add(time.Hour)
	r.Active = false
	if got := r.Status(testNow); got != StatusUpcoming {
		t.Fatalf("Status() = %q, want upcoming", got)
	}
}

func TestStatusInactive(t *testing.T) {
	r := activeRule()
	r.Active = false
	if got := r.Status(testNow); got != StatusInactive {
		t.Fatalf("Status() = %q, want inactive", got)
	}
}

func TestStatusActive(t *testing.T) {
	if got := activeRule().Status(testNow); got != StatusActive {
		t.Fatalf("Status() = %q, want active", got)
	}
}

func TestEligibleSubtotalCategoryScope(t *testing.T) {
	catX := uuid.New()
	catY := uuid.New()
	r := activeRule()
	r.Scope = db.CouponScopeCategory
	r.CategoryIDs = []uuid.UUID{catX}
	items := []Item{
		{CategoryID: catX, Subtotal: 60_000},
		{CategoryID: catY, Subtotal: 40_000},
	}
	if got := EligibleSubtotal(items, r); got != 60_000 {
		t.Fatalf("EligibleSubtotal() = %d, want 60000", got)
	}
	if got := Discount(60_000, r); got != 6_000 {
		t.Fatalf("Discount() = %d, want 6000", got)
	}
}

func TestEligibleSubtotalAllScope(t *testing.T) {
	items := []Item{
		{CategoryID: uuid.New(), Subtotal: 60_000},
		{CategoryID: uuid.New(), Subtotal: 40_000},
		{CategoryID: uuid.New(), Subtotal: -5},
	}
	if got := EligibleSubtotal(items, activeRule()); got != 100_000 {
		t.Fatalf("EligibleSubtotal() = %d, want 100000", got)
	}
}

func TestDiscountUncapped(t *testing.T) {
	if got := Discount(100_000, activeRule()); got != 10_000 {
		t.Fatalf("Discount() = %d, want 10000", got)
	}
}

func TestDiscountCapped(t *testing.T) {
	r := activeRule()
	r.MaxDiscount = 5_000
	if got := Discount(100_000, r); got != 5_000 {
		t.Fatalf("Discount() = %d, want cap 5000", got)
	}
}

func TestDiscountRoundsHalfUp(t *testing.T) {
	r := activeRule()
	r.Percent = 7
	// 7% of 10705 = 749.35 -> 749; 7% of 10750 = 752.5 -> 753
	if got := Discount(10_705, r); got != 749 {
		t.Fatalf("Discount(10705) = %d, want 749", got)
	}
	if got := Discount(10_750, r); got != 753 {
		t.Fatalf("Discount(10750) = %d, want 753", got)
	}
}

func TestReasonCodes(t *testing.T) {
	cases := map[error]string{
		ErrExpired:            ReasonExpired,
		ErrUpcoming:           ReasonUpcoming,
		ErrInactive:           ReasonInactive,
		ErrNotApplicable:      ReasonNotApplicable,
		ErrBelowMinimum:       ReasonBelowMinimum,
		ErrCustomerCapReached: ReasonCustomerCapReached,
		ErrGlobalCapReached:   ReasonGlobalCapReached,
	}
	for err, want := range cases {
		if got := ReasonCode(err); got != want {
			t.Errorf("ReasonCode(%v) = %q, want %q", err, got, want)
		}
	}
	wrapped := errors.Join(errors.New("context"), ErrBelowMinimum)
	if got := ReasonCode(wrapped); got != ReasonBelowMinimum {
		t.Errorf("ReasonCode(wrapped) = %q, want below_minimum", got)
	}
	if got := ReasonCode(errors.New("other")); got != "" {
		t.Errorf("ReasonCode(unknown) = %q, want empty", got)
	}
}
