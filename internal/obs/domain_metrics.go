package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CouponEvaluationsTotal counts coupon eligibility outcomes by reason.
	CouponEvaluationsTotal *prometheus.CounterVec
	// CouponSettlementsTotal counts usage-ledger settlement outcomes.
	CouponSettlementsTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts orders by final placement outcome.
	OrdersPlacedTotal *prometheus.CounterVec
	// StockConflictsTotal counts checkouts refused because a variant ran out.
	StockConflictsTotal prometheus.Counter
	// EmailDeliveriesTotal tracks transactional email dispatch outcomes.
	EmailDeliveriesTotal *prometheus.CounterVec
	// CheckoutDuration records end-to-end checkout latency in milliseconds.
	CheckoutDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CouponEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_evaluations_total",
			Help:      "Count of coupon eligibility evaluations by outcome reason.",
		}, []string{"reason"})
		CouponSettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_settlements_total",
			Help:      "Count of coupon usage-ledger settlement outcomes.",
		}, []string{"result"})
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order placements by outcome.",
		}, []string{"result"})
		StockConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflicts_total",
			Help:      "Number of checkouts refused due to insufficient stock.",
		})
		EmailDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Count of transactional email deliveries by outcome.",
		}, []string{"result"})
		CheckoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "End-to-end checkout latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})

		mustRegisterCollector(reg, CouponEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponEvaluationsTotal = v
			}
		})
		mustRegisterCollector(reg, CouponSettlementsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponSettlementsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, StockConflictsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockConflictsTotal = v
			}
		})
		mustRegisterCollector(reg, EmailDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EmailDeliveriesTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				CheckoutDuration = v
			}
		})
	})
}

// ObserveCouponEvaluation records one evaluation outcome; safe before registration.
func ObserveCouponEvaluation(reason string) {
	if CouponEvaluationsTotal != nil {
		CouponEvaluationsTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveCouponSettlement records one settlement outcome; safe before registration.
func ObserveCouponSettlement(result string) {
	if CouponSettlementsTotal != nil {
		CouponSettlementsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveOrderPlaced records one order placement outcome; safe before registration.
func ObserveOrderPlaced(result string) {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.WithLabelValues(result).Inc()
	}
}

// ObserveStockConflict records one out-of-stock refusal; safe before registration.
func ObserveStockConflict() {
	if StockConflictsTotal != nil {
		StockConflictsTotal.Inc()
	}
}

// ObserveEmailDelivery records one email dispatch outcome; safe before registration.
func ObserveEmailDelivery(result string) {
	if EmailDeliveriesTotal != nil {
		EmailDeliveriesTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
