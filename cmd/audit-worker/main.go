// Command audit-worker persists pricing recommendations and failures
// to Postgres, consuming recommended_prices and dead_letter_queue
// independently.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"iaros/pricing_pipeline/internal/auditstore"
	"iaros/pricing_pipeline/internal/auditworker"
	"iaros/pricing_pipeline/internal/broker"
	"iaros/pricing_pipeline/internal/config"
	"iaros/pricing_pipeline/internal/envelope"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("audit-worker: failed to load config: " + err.Error())
	}

	logger := envelope.NewLogger("audit-worker", envelope.LoggerConfig{Level: cfg.LogLevel})
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	if err := auditstore.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to apply versioned migrations", zap.Error(err))
	}

	store, err := auditstore.Open(auditstore.PoolConfig{DSN: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		logger.Fatal("failed to auto-migrate schema", zap.Error(err))
	}

	recommendationsConsumer, err := broker.NewConsumer(cfg.KafkaBootstrapServers, "audit_worker_group", cfg.RecommendedPricesTopic)
	if err != nil {
		logger.Fatal("failed to create recommendations consumer", zap.Error(err))
	}
	defer recommendationsConsumer.Close()

	dlqConsumer, err := broker.NewConsumer(cfg.KafkaBootstrapServers, "audit_worker_group", cfg.DeadLetterQueueTopic)
	if err != nil {
		logger.Fatal("failed to create DLQ consumer", zap.Error(err))
	}
	defer dlqConsumer.Close()

	worker := &auditworker.Worker{
		Recommendations: recommendationsConsumer,
		DeadLetters:     dlqConsumer,
		Store:           store,
		Logger:          logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down audit worker")
		cancel()
	}()

	logger.Info("audit worker started")
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("audit worker stopped with error", zap.Error(err))
	}
}
