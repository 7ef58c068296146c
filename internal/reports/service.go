package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

func pgTimestamp(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// Querier defines the database access the reports service needs.
type Querier interface {
	GetDailySales(ctx context.Context, arg db.GetDailySalesParams) ([]db.DailySalesRow, error)
	GetTopProducts(ctx context.Context, arg db.GetTopProductsParams) ([]db.TopProductRow, error)
}

// Service provides cached access to the staff sales reports. Reports only
// count orders that reached PAID or a later status.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts)+1)
	formatted = append(formatted, "reports")
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// DailySales returns per-day sales totals between from (inclusive) and to
// (exclusive).
func (s *Service) DailySales(ctx context.Context, from, to time.Time) ([]db.DailySalesRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("reports service not configured")
	}
	key := cacheKey("sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if rows, ok := getCached[db.DailySalesRow](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.GetDailySales(ctx, db.GetDailySalesParams{
		From: pgTimestamp(from),
		To:   pgTimestamp(to),
	})
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns the best-selling products within the window, ranked by
// units sold.
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int32) ([]db.TopProductRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("reports service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	key := cacheKey("top", from.Format("2006-01-02"), to.Format("2006-01-02"), limit)
	if rows, ok := getCached[db.TopProductRow](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.GetTopProducts(ctx, db.GetTopProductsParams{
		From:  pgTimestamp(from),
		To:    pgTimestamp(to),
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func getCached[T any](ctx context.Context, s *Service, key string) ([]T, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
