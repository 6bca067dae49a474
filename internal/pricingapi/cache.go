// Package pricingapi implements the Pricing Decision API: a tiered
// cache lookup (Redis, guarded by a circuit breaker) with a static
// fallback map and Prometheus-counted outcomes, grounded in the
// teacher's FallbackEngine.go circuit-breaker usage and
// DynamicPricingEngine.go's Redis wiring.
package pricingapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"iaros/pricing_pipeline/internal/models"
)

// ErrCacheMiss is returned by PriceCache.Get when sku has no cached
// entry (as distinct from a Redis connectivity failure).
var ErrCacheMiss = errors.New("pricingapi: cache miss")

// PriceCache is the narrow interface handlers use, letting tests
// substitute an in-memory fake without a live Redis instance.
type PriceCache interface {
	Get(ctx context.Context, sku string) (models.CachedPrice, error)
	Set(ctx context.Context, sku string, price models.CachedPrice, ttl time.Duration) error
	Delete(ctx context.Context, sku string) error
}

// RedisCache is the production PriceCache, storing JSON under the
// price:<sku> key spec.md §6 names, with a circuit breaker around the
// Redis round trip so a degraded cache fails fast into the fallback
// path instead of blocking every request on a dead connection.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
}

// NewRedisCache builds a RedisCache. The breaker trips after 3
// consecutive failures and half-opens after 5 seconds, matching the
// settings the teacher uses for its fallback data sources.
func NewRedisCache(client *redis.Client) *RedisCache {
	settings := gobreaker.Settings{
		Name:        "price_cache",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
	}
	return &RedisCache{client: client, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func cacheKey(sku string) string {
	return "price:" + sku
}

// Get fetches and decodes the cached price for sku.
func (c *RedisCache) Get(ctx context.Context, sku string) (models.CachedPrice, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, cacheKey(sku)).Result()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.CachedPrice{}, ErrCacheMiss
		}
		return models.CachedPrice{}, err
	}

	var cached models.CachedPrice
	if err := json.Unmarshal([]byte(result.(string)), &cached); err != nil {
		return models.CachedPrice{}, err
	}
	return cached, nil
}

// Set writes price under sku's cache key with the given TTL.
func (c *RedisCache) Set(ctx context.Context, sku string, price models.CachedPrice, ttl time.Duration) error {
	payload, err := json.Marshal(price)
	if err != nil {
		return err
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, cacheKey(sku), payload, ttl).Err()
	})
	return err
}

// Delete removes sku's cache entry. Used by the admin cache-flush
// endpoint.
func (c *RedisCache) Delete(ctx context.Context, sku string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, cacheKey(sku)).Err()
	})
	return err
}

// Ping verifies Redis connectivity, used by the periodic health
// keepalive spec.md §4.6 calls for.
func (c *RedisCache) Ping(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Ping(ctx).Err()
	})
	return err
}
