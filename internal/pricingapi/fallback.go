package pricingapi

import (
	"sync"
	"time"

	"iaros/pricing_pipeline/internal/models"
)

// FallbackStore is the static, in-process price map the Pricing
// Decision API consults when the cache tier misses or is unavailable,
// grounded in the teacher's FallbackEngine layered-degradation design
// but reduced to spec.md's single static layer.
type FallbackStore struct {
	mu     sync.RWMutex
	prices map[string]models.CachedPrice
}

// defaultFallbackMarginPct and defaultFallbackConfidence match
// original_source/.../pricing_api/service.py's hardcoded fallback
// decision shape (margin_pct=0.20, confidence=0.3) -- a conservative,
// known-safe margin used only when no real recommendation exists.
const (
	defaultFallbackMarginPct  = 0.20
	defaultFallbackConfidence = 0.3
	defaultFallbackReason     = "Fallback pricing - cache unavailable"
)

// DefaultFallbackPrices is the static seed table named in spec.md §4.6
// step 2, ground-truthed against
// original_source/.../pricing_api/service.py's _default_fallback_prices.
func DefaultFallbackPrices() map[string]float64 {
	return map[string]float64{
		"SKU001": 100.00,
		"SKU002": 250.00,
		"SKU003": 50.00,
		"SKU004": 1000.00,
	}
}

// NewFallbackStore builds a fallback store seeded with
// DefaultFallbackPrices, so a cold cache still resolves the known
// SKUs spec.md names without requiring a prior write.
func NewFallbackStore() *FallbackStore {
	f := &FallbackStore{prices: make(map[string]models.CachedPrice)}
	now := time.Now().UTC()
	for sku, price := range DefaultFallbackPrices() {
		f.prices[sku] = models.CachedPrice{
			SKU:              sku,
			CurrentPrice:     price,
			RecommendedPrice: price,
			MarginPct:        defaultFallbackMarginPct,
			Confidence:       defaultFallbackConfidence,
			Reason:           defaultFallbackReason,
			CachedAt:         now,
			Source:           "fallback",
		}
	}
	return f
}

// Get returns the fallback price for sku, and whether one exists.
func (f *FallbackStore) Get(sku string) (models.CachedPrice, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[sku]
	return p, ok
}

// Set seeds or refreshes the fallback price for sku. The write-path
// handler calls this on every successful update, alongside writing
// the cache tier, so the fallback map tracks the last known-good
// decision even while Redis is down.
func (f *FallbackStore) Set(sku string, price models.CachedPrice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[sku] = price
}
