// Package auditstore persists pricing decisions and pricing failures
// to Postgres via GORM. It is grounded in the teacher's
// order_service/src/database/connection.go connection-pool and
// AutoMigrate conventions, but replaces that file's package-level
// singleton (var db *Database, GetDB()) with an explicit *Store handle
// threaded through the audit worker and audit API, per spec.md §9's
// design note that global singletons become explicit handles.
package auditstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PoolConfig controls the underlying connection pool, named and
// defaulted the way the teacher's database.Config is.
type PoolConfig struct {
	DSN                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Store wraps a *gorm.DB handle plus the schema this pipeline owns.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres, configures the connection pool, and
// verifies connectivity with a ping. It does not run migrations;
// call Migrate separately so callers can sequence it after other
// startup steps.
func Open(cfg PoolConfig) (*Store, error) {
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	gormDB, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("auditstore: connect: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("auditstore: underlying sql.DB: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 25
	}
	maxIdle := cfg.MaxIdleConnections
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("auditstore: ping: %w", err)
	}

	return &Store{db: gormDB}, nil
}

// Migrate creates/updates the pricing_decisions and pricing_failures
// tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&PricingDecision{}, &PricingFailure{}); err != nil {
		return fmt.Errorf("auditstore: migrate: %w", err)
	}
	return nil
}

// HealthCheck pings the underlying connection.
func (s *Store) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("auditstore: underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("auditstore: ping: %w", err)
	}
	return nil
}

// Stats reports connection pool statistics for the detailed health
// endpoint, matching the fields the teacher's database.GetStats
// reports.
func (s *Store) Stats() (map[string]interface{}, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	stats := sqlDB.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordDecision inserts a successful pricing recommendation.
func (s *Store) RecordDecision(ctx context.Context, d PricingDecision) error {
	return s.db.WithContext(ctx).Create(&d).Error
}

// RecordFailure inserts a DLQ-routed failure.
func (s *Store) RecordFailure(ctx context.Context, f PricingFailure) error {
	return s.db.WithContext(ctx).Create(&f).Error
}

// DecisionsBySKU returns the most recent decisions for sku, newest
// first, bounded by limit.
func (s *Store) DecisionsBySKU(ctx context.Context, sku string, limit int) ([]PricingDecision, error) {
	var out []PricingDecision
	err := s.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecentFailures returns failures recorded within the last `since`
// duration, newest first, bounded by limit.
func (s *Store) RecentFailures(ctx context.Context, since time.Duration, limit int) ([]PricingFailure, error) {
	var out []PricingFailure
	cutoff := time.Now().UTC().Add(-since)
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", cutoff).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Statistics summarizes decision and failure volume, used by the audit
// API's /statistics endpoint.
type Statistics struct {
	TotalDecisions    int64   `json:"total_decisions"`
	TotalFailures     int64   `json:"total_failures"`
	AverageMargin     float64 `json:"avg_margin"`
	AverageConfidence float64 `json:"avg_confidence"`
}

// Statistics computes aggregate counts across the full decision and
// failure history.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics

	if err := s.db.WithContext(ctx).Model(&PricingDecision{}).Count(&stats.TotalDecisions).Error; err != nil {
		return Statistics{}, err
	}
	if err := s.db.WithContext(ctx).Model(&PricingFailure{}).Count(&stats.TotalFailures).Error; err != nil {
		return Statistics{}, err
	}

	var avg struct {
		AvgMargin     float64
		AvgConfidence float64
	}
	row := s.db.WithContext(ctx).Model(&PricingDecision{}).
		Select("COALESCE(AVG(margin_pct), 0) as avg_margin, COALESCE(AVG(confidence), 0) as avg_confidence").
		Row()
	if row != nil {
		_ = row.Scan(&avg.AvgMargin, &avg.AvgConfidence)
	}
	stats.AverageMargin = avg.AvgMargin
	stats.AverageConfidence = avg.AvgConfidence

	return stats, nil
}
