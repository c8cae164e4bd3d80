package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CalculationTotal counts calculation runs by pipeline and outcome.
	CalculationTotal *prometheus.CounterVec
	// CalculationDuration records calculation latency in milliseconds per pipeline.
	CalculationDuration *prometheus.HistogramVec
	// AppliedDiscountTotal counts applied discounts by scope type.
	AppliedDiscountTotal *prometheus.CounterVec
	// PromoCodeTotal counts promo code resolution outcomes.
	PromoCodeTotal *prometheus.CounterVec
	// PricingCacheTotal tracks merchant pricing cache lookups by outcome.
	PricingCacheTotal *prometheus.CounterVec
	// DistributionStallTotal counts cart-total distributions that hit the
	// pass cap before exhausting their target.
	DistributionStallTotal *prometheus.CounterVec
	// RuleSweepTotal counts rules expired by the status sweep worker.
	RuleSweepTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CalculationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculation_total",
			Help:      "Count of calculation runs by pipeline and outcome.",
		}, []string{"pipeline", "result"})
		CalculationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_ms",
			Help:      "Calculation latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"pipeline"})
		AppliedDiscountTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applied_discount_total",
			Help:      "Count of applied discounts by scope type.",
		}, []string{"type"})
		PromoCodeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_code_total",
			Help:      "Count of promo code resolution outcomes.",
		}, []string{"result"})
		PricingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_cache_total",
			Help:      "Merchant pricing cache lookups by outcome.",
		}, []string{"result"})
		DistributionStallTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distribution_stall_total",
			Help:      "Cart-total distributions that stalled before exhausting their target.",
		}, []string{"type"})
		RuleSweepTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_sweep_total",
			Help:      "Rules expired by the status sweep by entity.",
		}, []string{"entity"})

		mustRegisterCollector(reg, CalculationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CalculationTotal = v
			}
		})
		mustRegisterCollector(reg, CalculationDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CalculationDuration = v
			}
		})
		mustRegisterCollector(reg, AppliedDiscountTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AppliedDiscountTotal = v
			}
		})
		mustRegisterCollector(reg, PromoCodeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoCodeTotal = v
			}
		})
		mustRegisterCollector(reg, PricingCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingCacheTotal = v
			}
		})
		mustRegisterCollector(reg, DistributionStallTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DistributionStallTotal = v
			}
		})
		mustRegisterCollector(reg, RuleSweepTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RuleSweepTotal = v
			}
		})
	})
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
