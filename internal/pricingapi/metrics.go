package pricingapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks cache tier usage the way ControllerMetrics does in
// the teacher's PricingController, scaled down to the three outcomes
// spec.md's tiered-cache design calls for.
type Metrics struct {
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	FallbackUses  prometheus.Counter
	RequestErrors prometheus.Counter
}

// NewMetrics registers the pricing API's counters against the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pricing_api_cache_hits_total",
			Help: "Number of price lookups served from the cache tier.",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pricing_api_cache_misses_total",
			Help: "Number of price lookups that missed the cache tier.",
		}),
		FallbackUses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pricing_api_fallback_uses_total",
			Help: "Number of price lookups served from the static fallback map.",
		}),
		RequestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pricing_api_request_errors_total",
			Help: "Number of price lookups that found no price anywhere.",
		}),
	}
}
