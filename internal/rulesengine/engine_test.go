package rulesengine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iaros/pricing_pipeline/internal/models"
	"iaros/pricing_pipeline/internal/rulesengine"
)

func baselineContext() models.PriceContext {
	return models.PriceContext{
		SKU:              "SKU001",
		CurrentPrice:     100,
		Cost:             50,
		CompetitorPrices: []float64{95, 98, 100, 102},
		InventoryLevel:   1000,
		DaysInStock:      30,
		DemandForecast:   0.6,
		MinMargin:        0.10,
		MaxMargin:        0.50,
	}
}

func newEngine() *rulesengine.Engine {
	cfg := rulesengine.DefaultConfig()
	return rulesengine.New(cfg)
}

func TestBaselineScenario(t *testing.T) {
	e := newEngine()
	d := e.Calculate(baselineContext())

	assert.GreaterOrEqual(t, d.MarginPct, 0.10)
	assert.LessOrEqual(t, d.MarginPct, 0.50)
	assert.InDelta(t, 99, d.Price, 99*0.15)
	assert.True(t, containsAny(d.Reason, "STABLE", "Aggressive positioning", "Premium positioning"))
	assert.GreaterOrEqual(t, d.Confidence, 0.7)
}

func TestHighInventoryDiscount(t *testing.T) {
	e := newEngine()

	high := baselineContext()
	high.InventoryLevel = 10000

	low := baselineContext()
	low.InventoryLevel = 100

	dHigh := e.Calculate(high)
	dLow := e.Calculate(low)

	assert.Less(t, dHigh.Price, dLow.Price)
}

func TestDemandSwing(t *testing.T) {
	e := newEngine()

	highDemand := baselineContext()
	highDemand.DemandForecast = 0.9

	lowDemand := baselineContext()
	lowDemand.DemandForecast = 0.1

	dHigh := e.Calculate(highDemand)
	dLow := e.Calculate(lowDemand)

	assert.Greater(t, dHigh.Price, dLow.Price)
}

func TestInvariantMarginWithinBoundsWhenCostPositive(t *testing.T) {
	e := newEngine()
	for _, demand := range []float64{0.0, 0.1, 0.5, 0.9, 1.0} {
		ctx := baselineContext()
		ctx.DemandForecast = demand
		d := e.Calculate(ctx)
		assert.GreaterOrEqual(t, d.MarginPct, ctx.MinMargin-1e-9, "demand=%v", demand)
		assert.LessOrEqual(t, d.MarginPct, ctx.MaxMargin+1e-9, "demand=%v", demand)
	}
}

func TestInvariantPriceAtLeastCostPlusMinMargin(t *testing.T) {
	e := newEngine()
	ctx := baselineContext()
	ctx.InventoryLevel = 100000
	ctx.DaysInStock = 10000
	ctx.DemandForecast = 0.0
	d := e.Calculate(ctx)
	assert.GreaterOrEqual(t, d.Price, ctx.Cost*(1+ctx.MinMargin)-1e-9)
}

func TestInvariantConfidenceBounds(t *testing.T) {
	e := newEngine()
	ctx := baselineContext()
	d := e.Calculate(ctx)
	assert.GreaterOrEqual(t, d.Confidence, 0.0)
	assert.LessOrEqual(t, d.Confidence, 1.0)
}

func TestDeterministic(t *testing.T) {
	e := newEngine()
	ctx := baselineContext()
	d1 := e.Calculate(ctx)
	d2 := e.Calculate(ctx)
	assert.Equal(t, d1, d2)
}

func TestMonotoneNonIncreasingInInventoryAboveHighThreshold(t *testing.T) {
	e := newEngine()
	prev := -1.0
	for _, inv := range []int{1001, 2000, 5001, 9000} {
		ctx := baselineContext()
		ctx.InventoryLevel = inv
		d := e.Calculate(ctx)
		if prev >= 0 {
			assert.LessOrEqual(t, d.Price, prev+1e-9)
		}
		prev = d.Price
	}
}

func TestMonotoneNonDecreasingInDemand(t *testing.T) {
	e := newEngine()
	prev := -1.0
	for _, demand := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		ctx := baselineContext()
		ctx.DemandForecast = demand
		d := e.Calculate(ctx)
		if prev >= 0 {
			assert.GreaterOrEqual(t, d.Price, prev-1e-9)
		}
		prev = d.Price
	}
}

func TestNoCompetitorPricesUsesDefaultPrice(t *testing.T) {
	e := newEngine()
	ctx := baselineContext()
	ctx.CompetitorPrices = nil
	d := e.Calculate(ctx)
	require.NotZero(t, d.Price)
}

func TestZeroCostDoesNotDivideByZero(t *testing.T) {
	e := newEngine()
	ctx := baselineContext()
	ctx.Cost = 0
	assert.NotPanics(t, func() {
		d := e.Calculate(ctx)
		assert.Equal(t, 0.0, d.MarginPct)
	})
}

func TestCalculateBatchAppendsHistory(t *testing.T) {
	e := newEngine()
	ctx := baselineContext()

	e.CalculateBatch([]models.PriceContext{ctx, ctx, ctx})

	trend := e.History.Trend(ctx.SKU)
	assert.Equal(t, 3, trend.Count)
	assert.Greater(t, trend.MeanPrice, 0.0)
}

func TestCalculateDoesNotAppendHistory(t *testing.T) {
	e := newEngine()
	ctx := baselineContext()
	e.Calculate(ctx)
	trend := e.History.Trend(ctx.SKU)
	assert.Equal(t, 0, trend.Count)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
