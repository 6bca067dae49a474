package pricingapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iaros/pricing_pipeline/internal/models"
	"iaros/pricing_pipeline/internal/pricingapi"
)

type fakeCache struct {
	entries map[string]models.CachedPrice
	failGet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]models.CachedPrice)}
}

func (f *fakeCache) Get(ctx context.Context, sku string) (models.CachedPrice, error) {
	if f.failGet {
		return models.CachedPrice{}, assert.AnError
	}
	p, ok := f.entries[sku]
	if !ok {
		return models.CachedPrice{}, pricingapi.ErrCacheMiss
	}
	return p, nil
}

func (f *fakeCache) Set(ctx context.Context, sku string, price models.CachedPrice, ttl time.Duration) error {
	f.entries[sku] = price
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, sku string) error {
	delete(f.entries, sku)
	return nil
}

func newTestHandler(cache pricingapi.PriceCache) (*pricingapi.Handler, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	h := pricingapi.NewHandler(cache, pricingapi.NewFallbackStore(), pricingapi.NewMetrics(), 5*time.Minute)
	r := gin.New()
	h.RegisterRoutes(r)
	return h, r
}

func TestGetPriceCacheHit(t *testing.T) {
	cache := newFakeCache()
	cache.entries["SKU001"] = models.CachedPrice{SKU: "SKU001", RecommendedPrice: 99.5, Source: "cache"}
	_, router := newTestHandler(cache)

	req := httptest.NewRequest(http.MethodGet, "/price/SKU001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.CachedPrice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cache", resp.Source)
}

func TestGetPriceFallsBackWhenCacheMisses(t *testing.T) {
	cache := newFakeCache()
	h, router := newTestHandler(cache)
	h.Fallback.Set("SKU002", models.CachedPrice{SKU: "SKU002", RecommendedPrice: 42})

	req := httptest.NewRequest(http.MethodGet, "/price/SKU002", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.CachedPrice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Source)
}

func TestGetPriceReturns404WhenNowhereFound(t *testing.T) {
	cache := newFakeCache()
	_, router := newTestHandler(cache)

	req := httptest.NewRequest(http.MethodGet, "/price/UNKNOWN", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePriceWritesCacheAndFallback(t *testing.T) {
	cache := newFakeCache()
	h, router := newTestHandler(cache)

	body, _ := json.Marshal(map[string]interface{}{"recommended_price": 55.5, "current_price": 50})
	req := httptest.NewRequest(http.MethodPost, "/price/SKU003/update", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cached, err := cache.Get(context.Background(), "SKU003")
	require.NoError(t, err)
	assert.Equal(t, 55.5, cached.RecommendedPrice)

	fallback, ok := h.Fallback.Get("SKU003")
	require.True(t, ok)
	assert.Equal(t, 55.5, fallback.RecommendedPrice)
}

func TestGetPricesBatchHandlesMixedOutcomes(t *testing.T) {
	cache := newFakeCache()
	cache.entries["SKU001"] = models.CachedPrice{SKU: "SKU001", RecommendedPrice: 10}
	h, router := newTestHandler(cache)
	h.Fallback.Set("SKU002", models.CachedPrice{SKU: "SKU002", RecommendedPrice: 20})

	body, _ := json.Marshal(map[string]interface{}{"skus": []string{"SKU001", "SKU002", "SKU999"}})
	req := httptest.NewRequest(http.MethodPost, "/prices/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Prices         map[string]models.CachedPrice `json:"prices"`
		TotalRequested int                            `json:"total_requested"`
		TotalFound     int                            `json:"total_found"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Prices, "SKU001")
	assert.Contains(t, resp.Prices, "SKU002")
	assert.NotContains(t, resp.Prices, "SKU999")
	assert.Equal(t, 3, resp.TotalRequested)
	assert.Equal(t, 2, resp.TotalFound)
}

func TestFlushCacheDeletesEntries(t *testing.T) {
	cache := newFakeCache()
	cache.entries["SKU001"] = models.CachedPrice{SKU: "SKU001"}
	_, router := newTestHandler(cache)

	body, _ := json.Marshal(map[string]interface{}{"skus": []string{"SKU001"}})
	req := httptest.NewRequest(http.MethodDelete, "/admin/cache", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := cache.Get(context.Background(), "SKU001")
	assert.ErrorIs(t, err, pricingapi.ErrCacheMiss)
}
