// Package config loads pipeline configuration the way the teacher
// services do: environment variables with typed defaults, following
// order_service/main.go's getEnv pattern, plus an optional YAML
// override file for values operators prefer to keep in a checked-in
// file rather than the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in spec.md §6, grouped by the
// component that reads it. All five binaries share one Config type and
// simply ignore the fields their component doesn't need.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	KafkaBootstrapServers string `yaml:"kafka_bootstrap_servers"`
	KafkaConsumerGroup    string `yaml:"kafka_consumer_group"`
	KafkaProducerRetries  int    `yaml:"kafka_producer_retries"`
	RawPricesTopic        string `yaml:"raw_prices_topic"`
	RecommendedPricesTopic string `yaml:"recommended_prices_topic"`
	DeadLetterQueueTopic  string `yaml:"dead_letter_queue_topic"`

	RedisURL   string `yaml:"redis_url"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	DatabaseURL string `yaml:"database_url"`

	MinMargin        float64 `yaml:"min_margin"`
	MaxMargin        float64 `yaml:"max_margin"`
	ElasticityFactor float64 `yaml:"elasticity_factor"`
	BatchSize        int     `yaml:"batch_size"`
	WorkerThreads    int     `yaml:"worker_threads"`

	ScraperMaxConcurrency int `yaml:"scraper_max_concurrency"`
	ScraperTimeoutSeconds int `yaml:"scraper_timeout_seconds"`

	ScraperAPIPort  string `yaml:"scraper_api_port"`
	PricingAPIPort  string `yaml:"pricing_api_port"`
	AuditAPIPort    string `yaml:"audit_api_port"`
}

// Defaults returns the configuration spec.md §6 specifies explicitly,
// before any environment or file overrides are applied.
func Defaults() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",

		KafkaBootstrapServers:  "localhost:9092",
		KafkaConsumerGroup:     "pricing-pipeline",
		KafkaProducerRetries:   5,
		RawPricesTopic:         "raw_prices",
		RecommendedPricesTopic: "recommended_prices",
		DeadLetterQueueTopic:   "dead_letter_queue",

		RedisURL:        "redis://localhost:6379",
		CacheTTLSeconds: 300,

		DatabaseURL: "",

		MinMargin:        0.10,
		MaxMargin:        0.50,
		ElasticityFactor: 1.5,
		BatchSize:        1000,
		WorkerThreads:    4,

		ScraperMaxConcurrency: 100,
		ScraperTimeoutSeconds: 5,

		ScraperAPIPort: "8081",
		PricingAPIPort: "8082",
		AuditAPIPort:   "8083",
	}
}

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, an optional YAML file at yamlPath (skipped silently if
// yamlPath is empty or the file does not exist), and environment
// variables. This mirrors order_service/main.go's loadConfig/getEnv
// idiom while adding the YAML layer spec.md's "config file override"
// requirement needs.
func Load(yamlPath string) (Config, error) {
	cfg := Defaults()

	if yamlPath != "" {
		if _, err := os.Stat(yamlPath); err == nil {
			data, err := os.ReadFile(yamlPath)
			if err != nil {
				return Config{}, fmt.Errorf("config: read %s: %w", yamlPath, err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", yamlPath, err)
			}
		}
	}

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.KafkaBootstrapServers = getEnv("KAFKA_BOOTSTRAP_SERVERS", cfg.KafkaBootstrapServers)
	cfg.KafkaConsumerGroup = getEnv("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaProducerRetries = getEnvInt("KAFKA_PRODUCER_RETRIES", cfg.KafkaProducerRetries)
	cfg.RawPricesTopic = getEnv("RAW_PRICES_TOPIC", cfg.RawPricesTopic)
	cfg.RecommendedPricesTopic = getEnv("RECOMMENDED_PRICES_TOPIC", cfg.RecommendedPricesTopic)
	cfg.DeadLetterQueueTopic = getEnv("DEAD_LETTER_QUEUE_TOPIC", cfg.DeadLetterQueueTopic)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.CacheTTLSeconds = getEnvInt("CACHE_TTL_SECONDS", cfg.CacheTTLSeconds)

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)

	cfg.MinMargin = getEnvFloat("MIN_MARGIN", cfg.MinMargin)
	cfg.MaxMargin = getEnvFloat("MAX_MARGIN", cfg.MaxMargin)
	cfg.ElasticityFactor = getEnvFloat("ELASTICITY_FACTOR", cfg.ElasticityFactor)
	cfg.BatchSize = getEnvInt("BATCH_SIZE", cfg.BatchSize)
	cfg.WorkerThreads = getEnvInt("WORKER_THREADS", cfg.WorkerThreads)

	cfg.ScraperMaxConcurrency = getEnvInt("SCRAPER_MAX_CONCURRENCY", cfg.ScraperMaxConcurrency)
	cfg.ScraperTimeoutSeconds = getEnvInt("SCRAPER_TIMEOUT_SECONDS", cfg.ScraperTimeoutSeconds)

	cfg.ScraperAPIPort = getEnv("SCRAPER_API_PORT", cfg.ScraperAPIPort)
	cfg.PricingAPIPort = getEnv("PRICING_API_PORT", cfg.PricingAPIPort)
	cfg.AuditAPIPort = getEnv("AUDIT_API_PORT", cfg.AuditAPIPort)

	if cfg.MinMargin > cfg.MaxMargin {
		return Config{}, fmt.Errorf("config: min_margin (%v) must not exceed max_margin (%v)", cfg.MinMargin, cfg.MaxMargin)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
