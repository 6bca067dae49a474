// Command scraper-api serves the Scraper/Ingestion API: it fetches
// competitor prices and publishes raw_prices envelopes for the rules
// worker. Startup/shutdown sequencing follows order_service/main.go.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iaros/pricing_pipeline/internal/broker"
	"iaros/pricing_pipeline/internal/config"
	"iaros/pricing_pipeline/internal/envelope"
	"iaros/pricing_pipeline/internal/httpmiddleware"
	"iaros/pricing_pipeline/internal/scraper"
	"iaros/pricing_pipeline/internal/scraperapi"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("scraper-api: failed to load config: " + err.Error())
	}

	logger := envelope.NewLogger("scraper-api", envelope.LoggerConfig{Level: cfg.LogLevel})
	defer logger.Sync()

	producer, err := broker.NewProducer(cfg.KafkaBootstrapServers, cfg.KafkaProducerRetries)
	if err != nil {
		logger.Fatal("failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	transport := scraper.NewSimulatedTransport(time.Now().UnixNano())
	fetcher := scraper.NewFetcher(transport, cfg.ScraperMaxConcurrency, time.Duration(cfg.ScraperTimeoutSeconds)*time.Second)

	handler := scraperapi.NewHandler(fetcher, producer, cfg.RawPricesTopic)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmiddleware.RequestID())
	router.Use(loggingMiddleware(logger))
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.ScraperAPIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting scraper API", zap.String("port", cfg.ScraperAPIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("scraper API failed", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

func loggingMiddleware(logger *envelope.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func waitForShutdown(server *http.Server, logger *envelope.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scraper API")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
}
