// Command rules-worker consumes raw_prices, evaluates the pricing
// rules engine, and publishes recommended_prices or dead_letter_queue
// records.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"iaros/pricing_pipeline/internal/broker"
	"iaros/pricing_pipeline/internal/config"
	"iaros/pricing_pipeline/internal/envelope"
	"iaros/pricing_pipeline/internal/rulesengine"
	"iaros/pricing_pipeline/internal/rulesworker"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("rules-worker: failed to load config: " + err.Error())
	}

	logger := envelope.NewLogger("rules-worker", envelope.LoggerConfig{Level: cfg.LogLevel})
	defer logger.Sync()

	recommendedProducer, err := broker.NewProducer(cfg.KafkaBootstrapServers, cfg.KafkaProducerRetries)
	if err != nil {
		logger.Fatal("failed to create recommended_prices producer", zap.Error(err))
	}
	defer recommendedProducer.Close()

	dlqProducer, err := broker.NewProducer(cfg.KafkaBootstrapServers, cfg.KafkaProducerRetries)
	if err != nil {
		logger.Fatal("failed to create dead_letter_queue producer", zap.Error(err))
	}
	defer dlqProducer.Close()

	engineCfg := rulesengine.DefaultConfig()
	engineCfg.MinMargin = cfg.MinMargin
	engineCfg.MaxMargin = cfg.MaxMargin
	engineCfg.ElasticityFactor = cfg.ElasticityFactor
	engine := rulesengine.New(engineCfg)

	topics := broker.Topics{
		RawPrices:         cfg.RawPricesTopic,
		RecommendedPrices: cfg.RecommendedPricesTopic,
		DeadLetterQueue:   cfg.DeadLetterQueueTopic,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down rules worker")
		cancel()
	}()

	// worker_threads independent consumers in the same consumer group:
	// Kafka assigns each a disjoint set of raw_prices partitions, so
	// increasing this value scales throughput without any in-process
	// coordination.
	threads := cfg.WorkerThreads
	if threads <= 0 {
		threads = 1
	}

	done := make(chan error, threads)
	for i := 0; i < threads; i++ {
		consumer, err := broker.NewConsumer(cfg.KafkaBootstrapServers, "rules_engine_group", cfg.RawPricesTopic)
		if err != nil {
			logger.Fatal("failed to create raw_prices consumer", zap.Error(err))
		}
		defer consumer.Close()

		worker := &rulesworker.Worker{
			Consumer:    consumer,
			Recommended: recommendedProducer,
			DeadLetter:  dlqProducer,
			Engine:      engine,
			Topics:      topics,
			Logger:      logger,
		}
		go func() { done <- worker.Run(ctx) }()
	}

	logger.Info("rules worker started", zap.Int("worker_threads", threads))
	for i := 0; i < threads; i++ {
		if err := <-done; err != nil && ctx.Err() == nil {
			logger.Error("rules worker goroutine stopped with error", zap.Error(err))
		}
	}
}
