package coupon

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/pricing"
)

var (
	// ErrExpired is returned when the coupon's validity window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrUpcoming is returned when the coupon's validity window has not opened yet.
	ErrUpcoming = errors.New("coupon not started")
	// ErrInactive is returned when staff have disabled the coupon.
	ErrInactive = errors.New("coupon disabled")
	// ErrNotApplicable indicates no cart line falls inside the coupon's scope.
	ErrNotApplicable = errors.New("coupon not applicable to cart")
	// ErrBelowMinimum indicates the eligible subtotal is under the purchase threshold.
	ErrBelowMinimum = errors.New("minimum purchase not met")
	// ErrCustomerCapReached indicates the caller exhausted the per-customer allowance.
	ErrCustomerCapReached = errors.New("coupon per-customer usage limit reached")
	// ErrGlobalCapReached indicates the coupon exhausted its global usage quota.
	ErrGlobalCapReached = errors.New("coupon usage limit reached")
)

// Reason codes surfaced to clients alongside rejection errors.
const (
	ReasonExpired            = "expired"
	ReasonUpcoming           = "upcoming"
	ReasonInactive           = "inactive"
	ReasonNotApplicable      = "not_applicable"
	ReasonBelowMinimum       = "below_minimum"
	ReasonCustomerCapReached = "customer_cap_reached"
	ReasonGlobalCapReached   = "global_cap_reached"
)

// ReasonCode maps a rejection error to its stable reason code. Unknown errors
// yield an empty string.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrUpcoming):
		return ReasonUpcoming
	case errors.Is(err, ErrInactive):
		return ReasonInactive
	case errors.Is(err, ErrNotApplicable):
		return ReasonNotApplicable
	case errors.Is(err, ErrBelowMinimum):
		return ReasonBelowMinimum
	case errors.Is(err, ErrCustomerCapReached):
		return ReasonCustomerCapReached
	case errors.Is(err, ErrGlobalCapReached):
		return ReasonGlobalCapReached
	default:
		return ""
	}
}

// Status is the derived lifecycle state of a coupon at a given instant.
type Status string

const (
	StatusExpired  Status = "expired"
	StatusUpcoming Status = "upcoming"
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	ID             uuid.UUID
	Code           string
	Percent        int32
	MaxDiscount    int64
	MinPurchase    int64
	GlobalCap      int32
	PerCustomerCap int32
	Scope          db.CouponScope
	CategoryIDs    []uuid.UUID
	ValidFrom      time.Time
	ValidTo        time.Time
	Active         bool
}

// RuleFromModel converts a stored coupon into its evaluation rule.
func RuleFromModel(c db.Coupon) Rule {
	r := Rule{
		ID:             uuid.UUID(c.ID.Bytes),
		Code:           c.Code,
		Percent:        c.DiscountPercent,
		MaxDiscount:    c.MaxDiscountAmount,
		MinPurchase:    c.MinPurchaseAmount,
		GlobalCap:      c.MaxUsageCount,
		PerCustomerCap: c.MaxUsagePerCustomer,
		Scope:          c.AppliesTo,
		Active:         c.Active,
	}
	if c.ValidFrom.Valid {
		r.ValidFrom = c.ValidFrom.Time
	}
	if c.ValidTo.Valid {
		r.ValidTo = c.ValidTo.Time
	}
	for _, id := range c.CategoryIds {
		if id.Valid {
			r.CategoryIDs = append(r.CategoryIDs, uuid.UUID(id.Bytes))
		}
	}
	return r
}

// Status derives the lifecycle state at the given instant. Expiry and the
// not-yet-open window take precedence over the active flag.
func (r Rule) Status(now time.Time) Status {
	switch {
	case !now.Before(r.ValidTo):
		return StatusExpired
	case now.Before(r.ValidFrom):
		return StatusUpcoming
	case !r.Active:
		return StatusInactive
	default:
		return StatusActive
	}
}

func (r Rule) statusErr(now time.Time) error {
	switch r.Status(now) {
	case StatusExpired:
		return ErrExpired
	case StatusUpcoming:
		return ErrUpcoming
	case StatusInactive:
		return ErrInactive
	default:
		return nil
	}
}

// Item represents one cart line presented for eligibility evaluation.
type Item struct {
	CategoryID uuid.UUID
	Subtotal   int64
}

// EligibleSubtotal sums the cart value covered by the rule's scope.
func EligibleSubtotal(items []Item, r Rule) int64 {
	var total int64
	for _, it := range items {
		if it.Subtotal <= 0 {
			continue
		}
		if r.Scope != db.CouponScopeCategory || containsCategory(r.CategoryIDs, it.CategoryID) {
			total += it.Subtotal
		}
	}
	return total
}

func containsCategory(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Discount computes the percentage discount over the eligible subtotal,
// rounded half up, then clamped to the absolute cap when one is set.
func Discount(eligible int64, r Rule) int64 {
	if eligible <= 0 || r.Percent <= 0 {
		return 0
	}
	discount := pricing.RoundDiv(eligible*int64(r.Percent), 100)
	if r.MaxDiscount > 0 && discount > r.MaxDiscount {
		discount = r.MaxDiscount
	}
	if discount > eligible {
		discount = eligible
	}
	return discount
}
