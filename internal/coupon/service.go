package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

// ErrUnknownCode is returned when no coupon exists for the supplied code.
var ErrUnknownCode = errors.New("coupon code unknown")

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (db.Coupon, error)
	ListCoupons(ctx context.Context) ([]db.Coupon, error)
	CountCouponUsage(ctx context.Context, couponID pgtype.UUID) (int64, error)
	CountCouponUsageByUser(ctx context.Context, arg db.CountCouponUsageByUserParams) (int64, error)
	GetCouponUsageByOrder(ctx context.Context, arg db.GetCouponUsageByOrderParams) (db.CouponUsage, error)
	InsertCouponUsage(ctx context.Context, arg db.InsertCouponUsageParams) error
}

// Evaluation describes the outcome of a successful eligibility check.
type Evaluation struct {
	Code             string `json:"code"`
	Percent          int32  `json:"percent"`
	EligibleSubtotal int64  `json:"eligible_subtotal"`
	Discount         int64  `json:"discount"`
}

// Service evaluates coupon eligibility and settles usage at order time.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// WithQuerier returns a copy of the service bound to q, so that evaluation
// can share a caller's transaction.
func (s *Service) WithQuerier(q Querier) *Service {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Q = q
	return &cp
}

// Evaluate runs the full eligibility check for a cart. It is read-only: the
// usage ledger is consulted but never written. An empty userID means an
// anonymous session, for which only the global cap applies.
func (s *Service) Evaluate(ctx context.Context, code string, userID pgtype.UUID, items []Item) (Evaluation, error) {
	if s == nil || s.Q == nil {
		return Evaluation{}, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Evaluation{}, ErrUnknownCode
	}
	model, err := s.Q.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Evaluation{}, ErrUnknownCode
		}
		return Evaluation{}, fmt.Errorf("load coupon: %w", err)
	}
	rule := RuleFromModel(model)

	if err := rule.statusErr(s.now()); err != nil {
		return Evaluation{}, err
	}

	eligible := EligibleSubtotal(items, rule)
	if eligible == 0 {
		return Evaluation{}, ErrNotApplicable
	}
	if rule.MinPurchase > 0 && eligible < rule.MinPurchase {
		return Evaluation{}, fmt.Errorf("short by %d: %w", rule.MinPurchase-eligible, ErrBelowMinimum)
	}

	if rule.PerCustomerCap > 0 && userID.Valid {
		used, err := s.Q.CountCouponUsageByUser(ctx, db.CountCouponUsageByUserParams{
			CouponID: model.ID,
			UserID:   userID,
		})
		if err != nil {
			return Evaluation{}, fmt.Errorf("count customer usage: %w", err)
		}
		if used >= int64(rule.PerCustomerCap) {
			return Evaluation{}, ErrCustomerCapReached
		}
	}
	if rule.GlobalCap > 0 {
		used, err := s.Q.CountCouponUsage(ctx, model.ID)
		if err != nil {
			return Evaluation{}, fmt.Errorf("count usage: %w", err)
		}
		if used >= int64(rule.GlobalCap) {
			return Evaluation{}, ErrGlobalCapReached
		}
	}

	return Evaluation{
		Code:             model.Code,
		Percent:          rule.Percent,
		EligibleSubtotal: eligible,
		Discount:         Discount(eligible, rule),
	}, nil
}

// Available lists the coupons a caller can still redeem: active or upcoming,
// with the global cap and the caller's per-customer cap not yet exhausted.
// An invalid userID means an anonymous caller, for which only the global cap
// is checked.
func (s *Service) Available(ctx context.Context, userID pgtype.UUID) ([]db.Coupon, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("coupon service not configured")
	}
	coupons, err := s.Q.ListCoupons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	now := s.now()
	out := make([]db.Coupon, 0, len(coupons))
	for _, c := range coupons {
		rule := RuleFromModel(c)
		switch rule.Status(now) {
		case StatusActive, StatusUpcoming:
		default:
			continue
		}
		if rule.GlobalCap > 0 {
			used, err := s.Q.CountCouponUsage(ctx, c.ID)
			if err != nil {
				return nil, fmt.Errorf("count usage: %w", err)
			}
			if used >= int64(rule.GlobalCap) {
				continue
			}
		}
		if userID.Valid && rule.PerCustomerCap > 0 {
			used, err := s.Q.CountCouponUsageByUser(ctx, db.CountCouponUsageByUserParams{
				CouponID: c.ID,
				UserID:   userID,
			})
			if err != nil {
				return nil, fmt.Errorf("count user usage: %w", err)
			}
			if used >= int64(rule.PerCustomerCap) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Settle records coupon consumption for a finalized order. It is idempotent:
// an existing (coupon, user, order) entry, found by lookup or surfaced as a
// unique violation on insert, is treated as already settled. Errors are
// returned so callers can log them, but order completion must not depend on
// this write succeeding.
func (s *Service) Settle(ctx context.Context, code string, userID, orderID pgtype.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("coupon service not configured")
	}
	if strings.TrimSpace(code) == "" || !orderID.Valid {
		return nil
	}
	model, err := s.Q.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Ctx(ctx).Warn().Str("code", code).Msg("settle skipped: coupon vanished")
			return nil
		}
		return fmt.Errorf("load coupon: %w", err)
	}
	_, err = s.Q.GetCouponUsageByOrder(ctx, db.GetCouponUsageByOrderParams{
		CouponID: model.ID,
		OrderID:  orderID,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup usage: %w", err)
	}
	err = s.Q.InsertCouponUsage(ctx, db.InsertCouponUsageParams{
		CouponID: model.ID,
		UserID:   userID,
		OrderID:  orderID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// lost a race with a concurrent settle; the ledger already holds the row
			return nil
		}
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
