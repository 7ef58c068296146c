package pricing

import "testing"

func TestComputeTenPercentCoupon(t *testing.T) {
	items := []Item{{Qty: 2, UnitPrice: 30_000}, {Qty: 1, UnitPrice: 40_000}}
	got := Compute(items, 10_000, 800)
	want := Summary{Subtotal: 100_000, Quantity: 3, Discount: 10_000, Tax: 7_200, Total: 97_200}
	if got != want {
		t.Fatalf("Compute() = %+v, want %+v", got, want)
	}
}

func TestComputeNoDiscount(t *testing.T) {
	got := Compute([]Item{{Qty: 1, UnitPrice: 95_000}}, 0, 800)
	if got.Discount != 0 {
		t.Fatalf("discount = %d, want 0", got.Discount)
	}
	if got.Tax != 7_600 {
		t.Fatalf("tax = %d, want 7600", got.Tax)
	}
	if got.Total != 102_600 {
		t.Fatalf("total = %d, want 102600", got.Total)
	}
}

func TestComputeDiscountClampedToSubtotal(t *testing.T) {
	got := Compute([]Item{{Qty: 1, UnitPrice: 5_000}}, 9_999, 800)
	if got.Discount != 5_000 {
		t.Fatalf("discount = %d, want clamp to subtotal 5000", got.Discount)
	}
	if got.Tax != 0 || got.Total != 0 {
		t.Fatalf("tax/total = %d/%d, want 0/0", got.Tax, got.Total)
	}
}

func TestComputeNegativeDiscountIgnored(t *testing.T) {
	got := Compute([]Item{{Qty: 1, UnitPrice: 1_000}}, -50, 800)
	if got.Discount != 0 {
		t.Fatalf("discount = %d, want 0", got.Discount)
	}
}

func TestComputeSkipsNonPositiveQty(t *testing.T) {
	got := Compute([]Item{{Qty: 0, UnitPrice: 100}, {Qty: -2, UnitPrice: 100}, {Qty: 1, UnitPrice: 300}}, 0, 800)
	if got.Subtotal != 300 || got.Quantity != 1 {
		t.Fatalf("subtotal/quantity = %d/%d, want 300/1", got.Subtotal, got.Quantity)
	}
}

func TestComputeIdempotent(t *testing.T) {
	items := []Item{{Qty: 3, UnitPrice: 12_345}, {Qty: 1, UnitPrice: 67}}
	first := Compute(items, 2_000, 800)
	second := Compute(items, 2_000, 800)
	if first != second {
		t.Fatalf("repeated Compute diverged: %+v vs %+v", first, second)
	}
}

func TestComputeMonotonicInQuantity(t *testing.T) {
	base := Compute([]Item{{Qty: 1, UnitPrice: 9_999}}, 500, 800)
	grown := Compute([]Item{{Qty: 2, UnitPrice: 9_999}}, 500, 800)
	if grown.Subtotal < base.Subtotal || grown.Tax < base.Tax || grown.Total < base.Total {
		t.Fatalf("growing quantity shrank totals: %+v -> %+v", base, grown)
	}
}

func TestRoundDivHalfUp(t *testing.T) {
	cases := []struct {
		num, den, want Money
	}{
		{0, 100, 0},
		{49, 100, 0},
		{50, 100, 1},
		{149, 100, 1},
		{150, 100, 2},
		{7_203, 10_000, 1},
		{1_234_567 * 800, 10_000, 98_765},
	}
	for _, tc := range cases {
		if got := RoundDiv(tc.num, tc.den); got != tc.want {
			t.Errorf("RoundDiv(%d, %d) = %d, want %d", tc.num, tc.den, got, tc.want)
		}
	}
}
