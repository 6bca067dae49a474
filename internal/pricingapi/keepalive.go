package pricingapi

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pinger is implemented by cache backends that support an explicit
// health probe; RedisCache does.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Logger is the narrow logging interface StartKeepalive needs.
type Logger interface {
	Error(msg string, fields ...zap.Field)
}

// StartKeepalive runs cache.Ping every 30 seconds until ctx is
// cancelled, following order_service/main.go's periodic health-check
// convention. Ping failures are logged, not fatal: the circuit breaker
// wrapping the cache already protects request handlers from a dead
// Redis.
func StartKeepalive(ctx context.Context, cache Pinger, logger Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cache.Ping(ctx); err != nil && logger != nil {
				logger.Error("pricing cache health check failed", zap.Error(err))
			}
		}
	}
}
