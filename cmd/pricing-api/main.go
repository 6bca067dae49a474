// Command pricing-api serves the Pricing Decision API: tiered
// cache/fallback price lookups and writes.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"iaros/pricing_pipeline/internal/config"
	"iaros/pricing_pipeline/internal/envelope"
	"iaros/pricing_pipeline/internal/httpmiddleware"
	"iaros/pricing_pipeline/internal/pricingapi"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("pricing-api: failed to load config: " + err.Error())
	}

	logger := envelope.NewLogger("pricing-api", envelope.LoggerConfig{Level: cfg.LogLevel})
	defer logger.Sync()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	cache := pricingapi.NewRedisCache(redisClient)
	fallback := pricingapi.NewFallbackStore()
	metrics := pricingapi.NewMetrics()
	handler := pricingapi.NewHandler(cache, fallback, metrics, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmiddleware.RequestID())
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.PricingAPIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pricingapi.StartKeepalive(ctx, cache, logger)

	go func() {
		logger.Info("starting pricing API", zap.String("port", cfg.PricingAPIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("pricing API failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down pricing API")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
}
