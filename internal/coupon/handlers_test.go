package coupon

import (
	"encoding/json"
	"testing"
)

func TestBuildCouponParamsDefaultsPerCustomerCap(t *testing.T) {
	var payload couponPayload
	raw := `{"code":"WELCOME10","discountPercent":10,"validFrom":"2026-01-01T00:00:00Z","validTo":"2026-02-01T00:00:00Z"}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	params, err := buildCouponParams(payload)
	if err != nil {
		t.Fatalf("buildCouponParams() error: %v", err)
	}
	if params.MaxUsagePerCustomer != 1 {
		t.Fatalf("omitted per-customer cap should default to 1, got %d", params.MaxUsagePerCustomer)
	}
}

func TestBuildCouponParamsExplicitZeroCapMeansUnlimited(t *testing.T) {
	var payload couponPayload
	raw := `{"code":"BULK","discountPercent":5,"maxUsagePerCustomer":0,"validFrom":"2026-01-01T00:00:00Z","validTo":"2026-02-01T00:00:00Z"}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	params, err := buildCouponParams(payload)
	if err != nil {
		t.Fatalf("buildCouponParams() error: %v", err)
	}
	if params.MaxUsagePerCustomer != 0 {
		t.Fatalf("explicit 0 should stay unlimited, got %d", params.MaxUsagePerCustomer)
	}
}
