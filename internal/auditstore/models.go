package auditstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Float64Slice is a JSON-column adapter so GORM stores
// PricingDecision.CompetitorPrices as a single JSON array column
// instead of a separate join table, matching the JSON-column schema
// spec.md §3 calls for.
type Float64Slice []float64

// Value implements driver.Valuer.
func (s Float64Slice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal([]float64(s))
}

// Scan implements sql.Scanner.
func (s *Float64Slice) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		str, ok := src.(string)
		if !ok {
			return fmt.Errorf("auditstore: unsupported Scan source %T for Float64Slice", src)
		}
		b = []byte(str)
	}
	return json.Unmarshal(b, s)
}

// PricingDecision mirrors the pricing_decisions table: one row per
// recommendation the rules worker produced, recorded by the audit
// worker. Schema follows original_source's audit_service/models.py
// PricingDecisionAudit table: a JSON column for competitor_prices, an
// append-only `applied`/`applied_at` pair mutated only by an upstream
// system (spec.md §3's ownership note), and indexes on sku alone,
// created_at alone, and the composite (sku, created_at) used by
// DecisionsBySKU's ordered range scan.
type PricingDecision struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	SKU              string       `gorm:"index;index:idx_decisions_sku_created_at,priority:1;not null" json:"sku"`
	CurrentPrice     float64      `json:"current_price"`
	RecommendedPrice float64      `json:"recommended_price"`
	MarginPct        float64      `json:"margin_pct"`
	Confidence       float64      `json:"confidence"`
	Reason           string       `json:"reason"`
	CompetitorPrices Float64Slice `gorm:"type:jsonb" json:"competitor_prices"`
	Applied          bool         `gorm:"default:false" json:"applied"`
	AppliedAt        *time.Time   `json:"applied_at"`
	CreatedAt        time.Time    `gorm:"index;index:idx_decisions_sku_created_at,priority:2" json:"created_at"`
}

// TableName pins the table name so renaming the Go type never silently
// renames the table.
func (PricingDecision) TableName() string { return "pricing_decisions" }

// PricingFailure mirrors the pricing_failures table: one row per
// message the rules worker routed to the dead letter queue. Schema
// follows original_source's audit_service/models.py PricingFailureLog
// table. sku is nullable because a malformed or sku-less message may
// never yield one; the composite (processing_service, created_at)
// index backs RecentFailures' time-bounded scan per producing
// service.
type PricingFailure struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SKU               *string   `gorm:"index" json:"sku"`
	OriginalMessage   string    `gorm:"type:text" json:"original_message"`
	Error             string    `gorm:"size:1000" json:"error"`
	ProcessingService string    `gorm:"size:100;index:idx_failures_service_created_at,priority:1" json:"processing_service"`
	CreatedAt         time.Time `gorm:"index;index:idx_failures_service_created_at,priority:2" json:"created_at"`
}

// TableName pins the table name.
func (PricingFailure) TableName() string { return "pricing_failures" }
