package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/reports"
)

type stubQueries struct {
	salesCalls int
	topCalls   int
}

func (s *stubQueries) GetDailySales(_ context.Context, arg db.GetDailySalesParams) ([]db.DailySalesRow, error) {
	s.salesCalls++
	return []db.DailySalesRow{{
		Day:        pgtype.Date{Time: arg.From.Time, Valid: true},
		OrderCount: 3,
		GrossTotal: 324000,
		Discount:   30000,
		Tax:        24000,
	}}, nil
}

func (s *stubQueries) GetTopProducts(_ context.Context, arg db.GetTopProductsParams) ([]db.TopProductRow, error) {
	s.topCalls++
	return []db.TopProductRow{{Title: "Linen Shirt", UnitsSold: 7, Revenue: 1750000}}, nil
}

func newTestService(t *testing.T) (*reports.Service, *stubQueries) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queries := &stubQueries{}
	return &reports.Service{Q: queries, R: rdb, TTL: time.Minute, DefaultRange: 30}, queries
}

func TestDailySalesCached(t *testing.T) {
	svc, queries := newTestService(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	first, err := svc.DailySales(context.Background(), from, to)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.DailySales(context.Background(), from, to)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.salesCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.salesCalls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected row counts: %d, %d", len(first), len(second))
	}
	if second[0].GrossTotal != 324000 {
		t.Fatalf("cached row mismatch: %+v", second[0])
	}
}

func TestTopProductsDefaultLimit(t *testing.T) {
	svc, queries := newTestService(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)

	rows, err := svc.TopProducts(context.Background(), from, to, 0)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if queries.topCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.topCalls)
	}
	if len(rows) != 1 || rows[0].UnitsSold != 7 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestDistinctWindowsMissCache(t *testing.T) {
	svc, queries := newTestService(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.DailySales(context.Background(), from, from.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("first window: %v", err)
	}
	if _, err := svc.DailySales(context.Background(), from, from.AddDate(0, 0, 14)); err != nil {
		t.Fatalf("second window: %v", err)
	}
	if queries.salesCalls != 2 {
		t.Fatalf("expected 2 DB calls, got %d", queries.salesCalls)
	}
}
