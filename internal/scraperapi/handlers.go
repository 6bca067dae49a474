// Package scraperapi implements the HTTP surface of the Scraper/
// Ingestion API: synchronous single/batch scrape endpoints that publish
// raw_prices envelopes for the rules worker to consume, plus a
// competitor registry listing. Routing and middleware follow
// order_service/main.go's gin setup.
package scraperapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"iaros/pricing_pipeline/internal/broker"
	"iaros/pricing_pipeline/internal/envelope"
	"iaros/pricing_pipeline/internal/models"
	"iaros/pricing_pipeline/internal/scraper"
)

// Publisher is the narrow interface handlers need to emit raw_prices
// envelopes.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Handler holds the scraper fetcher and broker publisher the routes
// close over.
type Handler struct {
	Fetcher   *scraper.Fetcher
	Publisher Publisher
	Topic     string
}

// NewHandler builds a Handler. topic defaults to broker.DefaultTopics().RawPrices
// when empty.
func NewHandler(fetcher *scraper.Fetcher, publisher Publisher, topic string) *Handler {
	if topic == "" {
		topic = broker.DefaultTopics().RawPrices
	}
	return &Handler{Fetcher: fetcher, Publisher: publisher, Topic: topic}
}

// RegisterRoutes wires the handler's endpoints onto router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/competitors", h.ListCompetitors)
	router.POST("/scrape/single", h.ScrapeSingle)
	router.POST("/scrape/batch", h.ScrapeBatch)
}

// scrapeSingleRequest matches spec.md §4.3's documented contract
// `POST /scrape/single {sku, competitor_ids?}`. Pricing-context fields
// (current_price, cost, inventory_level, ...) are optional: whatever
// is omitted here is left zero-valued in the published raw_prices
// envelope and substituted by the rules worker's own defaults, per
// spec.md §4.5.
type scrapeSingleRequest struct {
	SKU            string   `json:"sku" binding:"required"`
	CompetitorIDs  []string `json:"competitor_ids,omitempty"`
	CurrentPrice   float64  `json:"current_price"`
	Cost           float64  `json:"cost"`
	InventoryLevel int      `json:"inventory_level"`
	DaysInStock    int      `json:"days_in_stock"`
	DemandForecast float64  `json:"demand_forecast"`
}

// ScrapeSingle scrapes one SKU's competitors and publishes a raw_prices
// envelope as a side effect. Per spec.md §4.3 the response body is the
// per-SKU list of CompetitorPrice directly; an empty result is a 404
// since there is nothing actionable to return.
func (h *Handler) ScrapeSingle(c *gin.Context) {
	var req scrapeSingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prices, err := h.scrapeAndPublish(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "sku": req.SKU})
		return
	}

	c.JSON(http.StatusOK, prices)
}

// scrapeBatchRequest matches spec.md §4.3's
// `POST /scrape/batch {skus[], competitor_ids?}` contract: one shared
// competitor_ids filter applied to every SKU in the batch.
type scrapeBatchRequest struct {
	SKUs          []string `json:"skus" binding:"required"`
	CompetitorIDs []string `json:"competitor_ids,omitempty"`
}

// ScrapeBatch scrapes multiple SKUs and always returns 200 with a map
// containing only the SKUs that yielded data, per spec.md §4.3.
func (h *Handler) ScrapeBatch(c *gin.Context) {
	var req scrapeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make(map[string][]models.CompetitorPrice, len(req.SKUs))
	for _, sku := range req.SKUs {
		item := scrapeSingleRequest{SKU: sku, CompetitorIDs: req.CompetitorIDs}
		prices, err := h.scrapeAndPublish(c.Request.Context(), item)
		if err != nil {
			continue
		}
		results[sku] = prices
	}

	c.JSON(http.StatusOK, results)
}

// scrapeAndPublish fetches competitor prices for one SKU, publishes a
// raw_prices envelope built from them (spec.md §4.3's "SHOULD also
// publish" step), and returns the competitor price list. A publish
// failure is discarded without logging and does not fail the HTTP
// request -- the scrape result itself is still valid and returned.
func (h *Handler) scrapeAndPublish(ctx context.Context, req scrapeSingleRequest) ([]models.CompetitorPrice, error) {
	competitorPrices := h.Fetcher.FetchAll(ctx, req.SKU, req.CompetitorIDs)
	if len(competitorPrices) == 0 {
		return nil, errNoCompetitorData
	}

	raw := models.RawPrice{
		SKU:              req.SKU,
		CurrentPrice:     req.CurrentPrice,
		Cost:             req.Cost,
		CompetitorPrices: scraper.Prices(competitorPrices),
		InventoryLevel:   req.InventoryLevel,
		DaysInStock:      req.DaysInStock,
		DemandForecast:   req.DemandForecast,
	}

	env, err := envelope.New(envelope.EventRawPrice, raw, time.Time{}, nil)
	if err == nil {
		if payload, err := env.Marshal(); err == nil {
			_ = h.Publisher.Publish(ctx, h.Topic, req.SKU, payload)
		}
	}

	return competitorPrices, nil
}

// ListCompetitors reports the fixed registry of sources the fetcher
// queries. This is a supplemented operational endpoint, not present in
// the distilled scraper but useful for debugging a scrape result's
// provenance.
func (h *Handler) ListCompetitors(c *gin.Context) {
	names := make([]string, 0, len(scraper.Competitors))
	for _, comp := range scraper.Competitors {
		names = append(names, string(comp))
	}
	c.JSON(http.StatusOK, gin.H{"competitors": names})
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "scraper-api", "timestamp": time.Now().UTC()})
}
