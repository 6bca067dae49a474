package pricingapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"iaros/pricing_pipeline/internal/models"
)

// Handler serves the Pricing Decision API: GET /price/:sku (tiered
// cache then fallback), POST /price/:sku/update (write-through to
// cache and fallback), POST /prices/batch, and DELETE /admin/cache.
type Handler struct {
	Cache    PriceCache
	Fallback *FallbackStore
	Metrics  *Metrics
	TTL      time.Duration
}

// NewHandler builds a Handler. ttl is the cache entry lifetime applied
// on every write.
func NewHandler(cache PriceCache, fallback *FallbackStore, metrics *Metrics, ttl time.Duration) *Handler {
	return &Handler{Cache: cache, Fallback: fallback, Metrics: metrics, TTL: ttl}
}

// RegisterRoutes wires the handler's endpoints onto router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/price/:sku", h.GetPrice)
	router.POST("/price/:sku/update", h.UpdatePrice)
	router.POST("/prices/batch", h.GetPricesBatch)
	router.DELETE("/admin/cache", h.FlushCache)
}

// GetPrice implements the tiered lookup: cache hit returns
// source="cache"; a miss that resolves in the fallback store returns
// source="fallback"; a miss with no fallback entry is a 404.
func (h *Handler) GetPrice(c *gin.Context) {
	sku := c.Param("sku")

	price, err := h.Cache.Get(c.Request.Context(), sku)
	if err == nil {
		h.Metrics.CacheHits.Inc()
		c.JSON(http.StatusOK, price)
		return
	}
	h.Metrics.CacheMisses.Inc()

	if fallback, ok := h.Fallback.Get(sku); ok {
		h.Metrics.FallbackUses.Inc()
		fallback.Source = "fallback"
		c.JSON(http.StatusOK, fallback)
		return
	}

	h.Metrics.RequestErrors.Inc()
	c.JSON(http.StatusNotFound, gin.H{"error": "no price available for sku", "sku": sku})
}

type updatePriceRequest struct {
	CurrentPrice     float64   `json:"current_price"`
	RecommendedPrice float64   `json:"recommended_price" binding:"required"`
	MarginPct        float64   `json:"margin_pct"`
	Confidence       float64   `json:"confidence"`
	Reason           string    `json:"reason"`
	CompetitorPrices []float64 `json:"competitor_prices"`
}

// UpdatePrice writes a computed price into both the cache and fallback
// tiers. Called by the rules worker's downstream integration (or an
// operator) whenever a fresh recommendation should become the price
// the API serves.
func (h *Handler) UpdatePrice(c *gin.Context) {
	sku := c.Param("sku")

	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cached := models.CachedPrice{
		SKU:              sku,
		CurrentPrice:     req.CurrentPrice,
		RecommendedPrice: req.RecommendedPrice,
		MarginPct:        req.MarginPct,
		Confidence:       req.Confidence,
		Reason:           req.Reason,
		CompetitorPrices: req.CompetitorPrices,
		CachedAt:         time.Now().UTC(),
		Source:           "cache",
	}

	h.Fallback.Set(sku, cached)

	if err := h.Cache.Set(c.Request.Context(), sku, cached, h.TTL); err != nil {
		// Cache write failure is non-fatal: the fallback store already
		// has the value, so reads still succeed via the fallback tier.
		c.JSON(http.StatusOK, gin.H{"sku": sku, "cached": false, "warning": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": sku, "cached": true})
}

type batchPriceRequest struct {
	SKUs []string `json:"skus" binding:"required"`
}

// GetPricesBatch resolves each requested SKU independently through the
// same tiered lookup GetPrice uses, always returning 200. Per spec.md
// §4.6 the response contains only the SKUs that yielded a non-null
// result, plus total_requested and total_found so a caller can tell
// misses from an empty request.
func (h *Handler) GetPricesBatch(c *gin.Context) {
	var req batchPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make(map[string]models.CachedPrice, len(req.SKUs))
	for _, sku := range req.SKUs {
		if price, found := h.resolve(c.Request.Context(), sku); found {
			results[sku] = price
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"prices":          results,
		"total_requested": len(req.SKUs),
		"total_found":     len(results),
	})
}

func (h *Handler) resolve(ctx context.Context, sku string) (models.CachedPrice, bool) {
	price, err := h.Cache.Get(ctx, sku)
	if err == nil {
		h.Metrics.CacheHits.Inc()
		return price, true
	}
	h.Metrics.CacheMisses.Inc()

	if fallback, ok := h.Fallback.Get(sku); ok {
		h.Metrics.FallbackUses.Inc()
		fallback.Source = "fallback"
		return fallback, true
	}

	h.Metrics.RequestErrors.Inc()
	return models.CachedPrice{}, false
}

// FlushCache clears every cache entry named in the request body. This
// is a supplemented operational endpoint for cache invalidation during
// incident response, not present in the distilled API surface.
func (h *Handler) FlushCache(c *gin.Context) {
	var req struct {
		SKUs []string `json:"skus" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var failed []string
	for _, sku := range req.SKUs {
		if err := h.Cache.Delete(c.Request.Context(), sku); err != nil && !errors.Is(err, ErrCacheMiss) {
			failed = append(failed, sku)
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusPartialContent, gin.H{"flushed": len(req.SKUs) - len(failed), "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": len(req.SKUs)})
}

// HealthCheck reports liveness plus cache connectivity when the cache
// supports an explicit ping (the production RedisCache does; fakes
// used in tests need not).
func (h *Handler) HealthCheck(c *gin.Context) {
	status := "healthy"
	if pinger, ok := h.Cache.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(c.Request.Context()); err != nil {
			status = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "service": "pricing-api", "timestamp": time.Now().UTC()})
}
