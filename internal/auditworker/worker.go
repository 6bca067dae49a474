// Package auditworker implements the Audit Worker: two independent
// consumer loops over recommended_prices and dead_letter_queue that
// persist every decision and failure to Postgres via internal/auditstore.
// Grounded in the teacher's data_pipeline_engine.go consumer-loop shape,
// generalized to two topics and a durable sink instead of one topic and
// an in-memory counter.
package auditworker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"iaros/pricing_pipeline/internal/auditstore"
	"iaros/pricing_pipeline/internal/envelope"
	"iaros/pricing_pipeline/internal/models"
)

// Consumer is the narrow interface the worker needs from a Kafka
// consumer.
type Consumer interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Commit(msg *kafka.Message) error
}

// Store is the narrow persistence interface the worker needs, letting
// tests substitute an in-memory fake without a live Postgres.
type Store interface {
	RecordDecision(ctx context.Context, d auditstore.PricingDecision) error
	RecordFailure(ctx context.Context, f auditstore.PricingFailure) error
}

type loggerIface interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Worker runs the two independent consume-and-persist loops.
type Worker struct {
	Recommendations Consumer
	DeadLetters     Consumer
	Store           Store
	Logger          loggerIface
}

// Run starts both consumer loops and blocks until ctx is cancelled or
// either loop exits with a non-context error.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- w.consumeRecommendations(ctx) }()
	go func() { errCh <- w.consumeDeadLetters(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (w *Worker) consumeRecommendations(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := w.Recommendations.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		if !w.persistDecision(ctx, msg) {
			continue // transient DB error: do not ack, broker redelivers
		}
		w.ackRecommendation(msg)
	}
}

func (w *Worker) consumeDeadLetters(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := w.DeadLetters.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		if !w.persistFailure(ctx, msg) {
			continue
		}
		w.ackDeadLetter(msg)
	}
}

// persistDecision parses and stores a recommendation. It returns false
// (without acking) on a transient store error, since spec.md §4.7
// requires a DB write failure to block the ack so the broker
// redelivers. Malformed JSON is a different failure mode: it can never
// succeed on redelivery, so it is logged and dropped (true, no
// persistence).
func (w *Worker) persistDecision(ctx context.Context, msg *kafka.Message) bool {
	env, err := envelope.Parse(msg.Value)
	if err != nil {
		w.logError("dropping malformed recommendation envelope", zap.Error(err))
		return true
	}

	var rec models.RecommendedPrice
	if err := env.DecodeData(&rec); err != nil {
		w.logError("dropping malformed recommendation payload", zap.Error(err))
		return true
	}

	row := auditstore.PricingDecision{
		SKU:              rec.SKU,
		CurrentPrice:     rec.CurrentPrice,
		RecommendedPrice: rec.RecommendedPrice,
		MarginPct:        rec.MarginPct,
		Confidence:       rec.Confidence,
		Reason:           rec.Reason,
		CompetitorPrices: auditstore.Float64Slice(rec.CompetitorPrices),
		CreatedAt:        timeOrNow(rec.CreatedAt),
	}

	if err := w.Store.RecordDecision(ctx, row); err != nil {
		w.logError("transient error recording decision, leaving unacked", zap.String("sku", rec.SKU), zap.Error(err))
		return false
	}
	return true
}

func (w *Worker) persistFailure(ctx context.Context, msg *kafka.Message) bool {
	var record models.DLQRecord
	if err := json.Unmarshal(msg.Value, &record); err != nil {
		w.logError("dropping malformed DLQ record", zap.Error(err))
		return true
	}

	row := auditstore.PricingFailure{
		SKU:               nullableSKU(record.SKU),
		OriginalMessage:   record.OriginalMessage,
		Error:             record.Error,
		ProcessingService: record.ProcessingService,
		CreatedAt:         timeOrNow(record.Timestamp),
	}

	if err := w.Store.RecordFailure(ctx, row); err != nil {
		w.logError("transient error recording failure, leaving unacked", zap.Error(err))
		return false
	}
	return true
}

func (w *Worker) ackRecommendation(msg *kafka.Message) {
	if err := w.Recommendations.Commit(msg); err != nil {
		w.logError("failed to commit recommendation offset", zap.Error(err))
	}
}

func (w *Worker) ackDeadLetter(msg *kafka.Message) {
	if err := w.DeadLetters.Commit(msg); err != nil {
		w.logError("failed to commit DLQ offset", zap.Error(err))
	}
}

func (w *Worker) logError(msg string, fields ...zap.Field) {
	if w.Logger != nil {
		w.Logger.Error(msg, fields...)
	}
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// nullableSKU returns nil for an empty sku so the pricing_failures row
// stores SQL NULL rather than an empty string, matching spec.md §3's
// nullable sku column.
func nullableSKU(sku string) *string {
	if sku == "" {
		return nil
	}
	return &sku
}
