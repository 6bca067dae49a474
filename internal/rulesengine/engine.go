// Package rulesengine implements the pure, deterministic pricing
// decision function described in spec.md §4.4: given a PriceContext it
// returns a recommended price, a human-readable reason, and a
// confidence score. No wall-clock or RNG is consulted on the hot path,
// so identical inputs always produce identical output.
package rulesengine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"iaros/pricing_pipeline/internal/models"
)

// Config holds the tunable business parameters. Defaults mirror
// spec.md §4.4 and the original Python engine's constructor defaults.
type Config struct {
	MinMargin       float64
	MaxMargin       float64
	ElasticityFactor float64

	DefaultPrice           float64
	CompetitiveDiscount    float64

	HighInventoryThreshold     int
	HighInventoryDiscount      float64
	CriticalInventoryThreshold int
	CriticalInventoryDiscount  float64

	OldStockDaysThreshold      int
	OldStockDiscount           float64
	CriticalStockDaysThreshold int
	CriticalStockDiscount      float64

	BaseConfidence                  float64
	ConfidenceBoostManyCompetitors  float64
	ConfidenceBoostFewCompetitors   float64
	ConfidenceBoostInventory        float64
	ConfidenceBoostDemand           float64
	MinDemandConfidence             float64
	MaxDemandConfidence             float64

	PriceIncreaseThresholdPct  float64
	PriceDecreaseThresholdPct  float64
	AggressivePositioningPct   float64
	PremiumPositioningPct      float64
}

// DefaultConfig returns the business parameters named explicitly in
// spec.md §4.4, §6, and the original engine.py constructor defaults.
func DefaultConfig() Config {
	return Config{
		MinMargin:        0.10,
		MaxMargin:        0.50,
		ElasticityFactor: 1.5,

		DefaultPrice:        100.0,
		CompetitiveDiscount: 0.02,

		HighInventoryThreshold:     1000,
		HighInventoryDiscount:      0.05,
		CriticalInventoryThreshold: 5000,
		CriticalInventoryDiscount:  0.10,

		OldStockDaysThreshold:      180,
		OldStockDiscount:           0.08,
		CriticalStockDaysThreshold: 365,
		CriticalStockDiscount:      0.15,

		BaseConfidence:                 0.5,
		ConfidenceBoostManyCompetitors: 0.2,
		ConfidenceBoostFewCompetitors:  0.1,
		ConfidenceBoostInventory:       0.15,
		ConfidenceBoostDemand:          0.15,
		MinDemandConfidence:            0.3,
		MaxDemandConfidence:            0.7,

		PriceIncreaseThresholdPct: 5.0,
		PriceDecreaseThresholdPct: 5.0,
		AggressivePositioningPct:  0.05,
		PremiumPositioningPct:     0.05,
	}
}

// Decision is the output of one Calculate call.
type Decision struct {
	Price      float64
	Reason     string
	Confidence float64
	MarginPct  float64
}

// Engine is the stateless pricing rules engine plus an optional,
// explicitly-opt-in history sink for trend analysis. The zero value
// (via New) is safe for concurrent use because Calculate touches no
// shared state; only CalculateBatch appends to History.
type Engine struct {
	cfg     Config
	History *History
}

// New builds an Engine with the given config. Pass rulesengine.DefaultConfig()
// to get spec.md's defaults, overriding the margin/elasticity fields from
// the pipeline's runtime configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, History: NewHistory()}
}

// Calculate runs the five-step transformation pipeline from spec.md §4.4
// and returns the recommended price, reason, and confidence. It is pure:
// two calls with an equal PriceContext always return an equal Decision.
func (e *Engine) Calculate(ctx models.PriceContext) Decision {
	minPrice := e.minimumPrice(ctx.Cost)
	competitive := e.competitiveAnchor(ctx.CompetitorPrices)
	demandAdjusted := e.applyDemandElasticity(competitive, ctx.DemandForecast)
	inventoryAdjusted := e.adjustForInventory(demandAdjusted, ctx.InventoryLevel, ctx.DaysInStock)
	final := e.enforceMarginConstraints(inventoryAdjusted, ctx.Cost, minPrice)

	final = roundToCents(final)

	confidence := e.confidence(ctx)
	reason := e.reason(ctx, final)

	margin := 0.0
	if ctx.Cost > 0 {
		margin = (final - ctx.Cost) / ctx.Cost
	}

	return Decision{
		Price:      final,
		Reason:     reason,
		Confidence: confidence,
		MarginPct:  margin,
	}
}

// CalculateBatch evaluates each context in order and appends every
// result to the engine's History. This is the only path that mutates
// History; Calculate never does, keeping the hot path lock-free.
func (e *Engine) CalculateBatch(contexts []models.PriceContext) []Decision {
	decisions := make([]Decision, 0, len(contexts))
	for _, ctx := range contexts {
		d := e.Calculate(ctx)
		decisions = append(decisions, d)
		if e.History != nil {
			e.History.Append(ctx.SKU, d)
		}
	}
	return decisions
}

// Step 1: minimum price floor.
func (e *Engine) minimumPrice(cost float64) float64 {
	return cost * (1 + e.cfg.MinMargin)
}

// Step 2: competitive anchor from the median competitor price, or the
// configured default price when there are no competitor observations.
func (e *Engine) competitiveAnchor(prices []float64) float64 {
	if len(prices) == 0 {
		return e.cfg.DefaultPrice
	}
	return median(prices) * (1 - e.cfg.CompetitiveDiscount)
}

// Step 3: demand elasticity. Demand above 0.5 raises price, below
// lowers it; the 0.1 factor bounds the swing per unit elasticity.
func (e *Engine) applyDemandElasticity(basePrice, demand float64) float64 {
	deviation := (demand - 0.5) * 2
	multiplier := 1.0 + (deviation * e.cfg.ElasticityFactor * 0.1)
	return basePrice * multiplier
}

// Step 4: inventory and stock-age adjustments compose multiplicatively.
func (e *Engine) adjustForInventory(basePrice float64, inventoryLevel, daysInStock int) float64 {
	discount := 1.0

	switch {
	case inventoryLevel > e.cfg.CriticalInventoryThreshold:
		discount *= 1 - e.cfg.CriticalInventoryDiscount
	case inventoryLevel > e.cfg.HighInventoryThreshold:
		discount *= 1 - e.cfg.HighInventoryDiscount
	}

	switch {
	case daysInStock > e.cfg.CriticalStockDaysThreshold:
		discount *= 1 - e.cfg.CriticalStockDiscount
	case daysInStock > e.cfg.OldStockDaysThreshold:
		discount *= 1 - e.cfg.OldStockDiscount
	}

	return basePrice * discount
}

// Step 5: margin clamp. When cost<=0 the suggested price is returned
// unclamped; Calculate then reports margin_pct=0 rather than dividing
// by zero, per spec.md §4.4's numerical semantics.
func (e *Engine) enforceMarginConstraints(suggested, cost, minPrice float64) float64 {
	if cost <= 0 {
		return suggested
	}
	price := math.Max(suggested, minPrice)
	maxPrice := cost * (1 + e.cfg.MaxMargin)
	return math.Min(price, maxPrice)
}

func (e *Engine) confidence(ctx models.PriceContext) float64 {
	confidence := e.cfg.BaseConfidence

	switch n := len(ctx.CompetitorPrices); {
	case n >= 3:
		confidence += e.cfg.ConfidenceBoostManyCompetitors
	case n >= 1:
		confidence += e.cfg.ConfidenceBoostFewCompetitors
	}

	if ctx.InventoryLevel > 0 {
		confidence += e.cfg.ConfidenceBoostInventory
	}

	if ctx.DemandForecast > e.cfg.MinDemandConfidence && ctx.DemandForecast < e.cfg.MaxDemandConfidence {
		confidence += e.cfg.ConfidenceBoostDemand
	}

	return math.Min(confidence, 1.0)
}

// reason generates the pipe-separated summary described in spec.md §4.4,
// using English tokens per the Open Question resolution in DESIGN.md.
func (e *Engine) reason(ctx models.PriceContext, final float64) string {
	var parts []string

	if ctx.CurrentPrice != 0 {
		delta := (final - ctx.CurrentPrice) / ctx.CurrentPrice * 100
		switch {
		case delta > e.cfg.PriceIncreaseThresholdPct:
			parts = append(parts, "INCREASE")
		case delta < -e.cfg.PriceDecreaseThresholdPct:
			parts = append(parts, "DISCOUNT")
		default:
			parts = append(parts, "STABLE")
		}
	} else {
		parts = append(parts, "STABLE")
	}

	if len(ctx.CompetitorPrices) > 0 {
		avg := mean(ctx.CompetitorPrices)
		switch {
		case final < avg*(1-e.cfg.AggressivePositioningPct):
			parts = append(parts, "Aggressive positioning")
		case final > avg*(1+e.cfg.PremiumPositioningPct):
			parts = append(parts, "Premium positioning")
		}
	}

	return strings.Join(parts, " | ")
}

func roundToCents(v float64) float64 {
	d := decimal.NewFromFloat(v).RoundBank(2)
	f, _ := d.Float64()
	return f
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// String renders a Decision for logging.
func (d Decision) String() string {
	return fmt.Sprintf("price=%.2f confidence=%.2f reason=%q", d.Price, d.Confidence, d.Reason)
}
