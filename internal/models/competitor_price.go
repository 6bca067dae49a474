package models

import "time"

// CompetitorPrice is a single observation collected by the scraper
// fetcher for one (sku, competitor) pair.
type CompetitorPrice struct {
	ProductSKU   string    `json:"product_sku"`
	CompetitorID string    `json:"competitor_id"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `json:"timestamp"`
	Availability bool      `json:"availability"`
	SourceURL    string    `json:"source_url,omitempty"`
}
