// Command audit-api serves the read-only Audit API over the
// pricing_decisions and pricing_failures tables.
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

	"iaros/pricing_pipeline/internal/auditapi"
	"iaros/pricing_pipeline/internal/auditstore"
	"iaros/pricing_pipeline/internal/config"
	"iaros/pricing_pipeline/internal/envelope"
	"iaros/pricing_pipeline/internal/httpmiddleware"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("audit-api: failed to load config: " + err.Error())
	}

	logger := envelope.NewLogger("audit-api", envelope.LoggerConfig{Level: cfg.LogLevel})
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	store, err := auditstore.Open(auditstore.PoolConfig{DSN: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	handler := auditapi.NewHandler(store)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmiddleware.RequestID())
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.AuditAPIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting audit API", zap.String("port", cfg.AuditAPIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("audit API failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down audit API")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
}
