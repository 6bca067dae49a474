package models

import "time"

// RecommendedPrice is the event_type="recommended_price" payload produced
// by the rules worker and consumed by the audit worker.
//
// Invariants (enforced by the rules engine before this is constructed):
// MinMargin <= MarginPct <= MaxMargin, 0 <= Confidence <= 1,
// RecommendedPrice >= Cost*(1+MinMargin).
type RecommendedPrice struct {
	SKU              string    `json:"sku"`
	CurrentPrice     float64   `json:"current_price"`
	RecommendedPrice float64   `json:"recommended_price"`
	MarginPct        float64   `json:"margin_pct"`
	Confidence       float64   `json:"confidence"`
	Reason           string    `json:"reason"`
	CompetitorPrices []float64 `json:"competitor_prices"`
	CreatedAt        time.Time `json:"created_at"`
}

// DLQRecord is the payload routed to the dead_letter_queue topic for any
// message the rules worker could not turn into a RecommendedPrice. SKU
// is best-effort: it is populated whenever the failure happened after
// the sku field was already parsed out of the payload, and left empty
// when the sku itself is what's missing or unparseable.
type DLQRecord struct {
	SKU               string    `json:"sku,omitempty"`
	OriginalMessage   string    `json:"original_message"`
	Error             string    `json:"error"`
	Timestamp         time.Time `json:"timestamp"`
	ProcessingService string    `json:"processing_service"`
}

// PriceContext is the full input tuple consumed by the rules engine. It
// is never persisted; it exists only for the duration of one evaluation.
type PriceContext struct {
	SKU              string
	CurrentPrice     float64
	Cost             float64
	CompetitorPrices []float64
	InventoryLevel   int
	DaysInStock      int
	DemandForecast   float64
	MinMargin        float64
	MaxMargin        float64
}

// CachedPrice is the JSON payload stored at cache key price:<sku>,
// RecommendedPrice plus a cached_at stamp and the source tag the pricing
// API attaches before returning a response.
type CachedPrice struct {
	SKU              string    `json:"sku"`
	CurrentPrice     float64   `json:"current_price"`
	RecommendedPrice float64   `json:"recommended_price"`
	MarginPct        float64   `json:"margin_pct"`
	Confidence       float64   `json:"confidence"`
	Reason           string    `json:"reason"`
	CompetitorPrices []float64 `json:"competitor_prices,omitempty"`
	CachedAt         time.Time `json:"cached_at"`
	Source           string    `json:"source"`
}
