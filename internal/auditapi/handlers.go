// Package auditapi implements the read-only Audit API backed by
// internal/auditstore: decision history by SKU, recent failures, and
// aggregate statistics. Routing follows order_service/main.go's gin
// setup.
package auditapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"iaros/pricing_pipeline/internal/auditstore"
)

// Store is the narrow read interface handlers need.
type Store interface {
	DecisionsBySKU(ctx context.Context, sku string, limit int) ([]auditstore.PricingDecision, error)
	RecentFailures(ctx context.Context, since time.Duration, limit int) ([]auditstore.PricingFailure, error)
	Statistics(ctx context.Context) (auditstore.Statistics, error)
	HealthCheck() error
}

// Handler serves the audit API's read endpoints.
type Handler struct {
	Store Store
}

// NewHandler builds a Handler.
func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes wires the handler's endpoints onto router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/decisions/sku/:sku", h.DecisionsBySKU)
	router.GET("/failures", h.RecentFailures)
	router.GET("/statistics", h.Statistics)
}

// DecisionsBySKU returns the most recent recommendations for :sku,
// bounded by ?limit= (default 50).
func (h *Handler) DecisionsBySKU(c *gin.Context) {
	sku := c.Param("sku")
	limit := intQuery(c, "limit", 50)

	decisions, err := h.Store.DecisionsBySKU(c.Request.Context(), sku, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(decisions) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no decisions recorded for sku", "sku": sku})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sku": sku, "decisions": decisions})
}

// RecentFailures returns DLQ-routed failures from the last ?hours=
// (default 24), bounded by ?limit= (default 100).
func (h *Handler) RecentFailures(c *gin.Context) {
	hours := intQuery(c, "hours", 24)
	limit := intQuery(c, "limit", 100)

	failures, err := h.Store.RecentFailures(c.Request.Context(), time.Duration(hours)*time.Hour, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failures": failures, "window_hours": hours})
}

// Statistics reports aggregate decision/failure counts.
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.Store.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HealthCheck reports liveness plus database connectivity.
func (h *Handler) HealthCheck(c *gin.Context) {
	status := "healthy"
	if err := h.Store.HealthCheck(); err != nil {
		status = "unhealthy"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "service": "audit-api", "timestamp": time.Now().UTC()})
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
