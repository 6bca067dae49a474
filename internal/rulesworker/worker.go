// Package rulesworker implements the Rules Engine Worker from spec.md
// §4.5: it consumes RawPrice envelopes, runs them through the rules
// engine, and publishes either a RecommendedPrice or a DLQ record. Every
// consumed message that parses as an envelope results in exactly one
// downstream record; a malformed envelope is dropped with none. No
// transition failure is retried in-process.
package rulesworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"iaros/pricing_pipeline/internal/broker"
	"iaros/pricing_pipeline/internal/envelope"
	"iaros/pricing_pipeline/internal/models"
	"iaros/pricing_pipeline/internal/rulesengine"
)

// malformedEnvelopesDropped counts messages dropped under spec.md §7's
// "Malformed envelope" policy (log + drop + count, no DLQ: a DLQ record
// carries the original bytes, but bytes that aren't a parseable envelope
// at all can never be reprocessed, so there is nothing a DLQ consumer
// could do with them).
var malformedEnvelopesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rules_worker_malformed_envelopes_dropped_total",
	Help: "Raw price messages dropped because they were not a parseable envelope.",
})

// ErrMissingSKU is returned when a RawPrice payload has no sku field.
// Per spec.md §4.5 this is the one field whose absence is fatal and
// routes the message to the DLQ rather than being defaulted.
var ErrMissingSKU = errors.New("rulesworker: raw price message missing sku")

// Consumer is the narrow interface the worker needs from a Kafka
// consumer, letting tests substitute a fake without a live broker.
type Consumer interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Commit(msg *kafka.Message) error
}

// Publisher is the narrow interface the worker needs from a Kafka
// producer.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Defaults substituted for RawPrice fields missing from the inbound
// payload, exactly as spec.md §4.5 lists them.
var Defaults = models.RawPrice{
	CurrentPrice:     100,
	Cost:             50,
	CompetitorPrices: []float64{},
	InventoryLevel:   100,
	DaysInStock:      30,
	DemandForecast:   0.5,
}

// Worker consumes raw_prices, evaluates the rules engine, and publishes
// to recommended_prices or dead_letter_queue.
type Worker struct {
	Consumer    Consumer
	Recommended Publisher
	DeadLetter  Publisher
	Engine      *rulesengine.Engine
	Topics      broker.Topics
	Logger      interface {
		Info(msg string, fields ...zap.Field)
		Error(msg string, fields ...zap.Field)
	}
}

// Run processes messages until ctx is cancelled. Each iteration follows
// the state machine Received -> Parsed -> Evaluated -> Published ->
// Acked. A malformed envelope is logged, counted, and dropped (it can
// never be reparsed); every other failure routes the original bytes to
// the DLQ and then acks the upstream message, since DLQ inspection (not
// in-process retry) is the recovery path.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := w.Consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			continue
		}

		w.processOne(ctx, msg)
	}
}

// processOne implements one full Received -> Acked cycle for a single
// message and never returns an error: a malformed envelope is counted
// and dropped, every other evaluation or envelope-building failure is
// routed to the DLQ, and in both cases the message is acked so the
// pipeline makes forward progress. A failed publish to either topic
// panics instead.
func (w *Worker) processOne(ctx context.Context, msg *kafka.Message) {
	original := string(msg.Value)

	decision, sku, currentPrice, cost, competitorPrices, err := w.evaluate(msg.Value)
	if err != nil {
		var malformed *envelope.MalformedEnvelopeError
		if errors.As(err, &malformed) {
			// spec.md §7: a malformed envelope cannot be reparsed, so a
			// DLQ record would be useless — log, count, drop, and ack.
			malformedEnvelopesDropped.Inc()
			w.logError("dropping malformed envelope", zap.Error(err))
			w.ack(msg)
			return
		}
		w.routeToDLQ(ctx, sku, original, err.Error())
		w.ack(msg)
		return
	}

	recommendation := models.RecommendedPrice{
		SKU:              sku,
		CurrentPrice:     currentPrice,
		RecommendedPrice: decision.Price,
		MarginPct:        decision.MarginPct,
		Confidence:       decision.Confidence,
		Reason:           decision.Reason,
		CompetitorPrices: competitorPrices,
		CreatedAt:        time.Now().UTC(),
	}

	env, err := envelope.New(envelope.EventRecommendedPrice, recommendation, time.Time{}, nil)
	if err != nil {
		w.routeToDLQ(ctx, sku, original, fmt.Sprintf("failed to build envelope: %v", err))
		w.ack(msg)
		return
	}

	payload, err := env.Marshal()
	if err != nil {
		w.routeToDLQ(ctx, sku, original, fmt.Sprintf("failed to marshal envelope: %v", err))
		w.ack(msg)
		return
	}

	if err := w.Recommended.Publish(ctx, w.Topics.RecommendedPrices, sku, payload); err != nil {
		// Downstream produce failure: spec.md §7 says retry up to the
		// producer's configured attempts then crash loudly. The
		// producer itself owns retrying; by the time Publish returns
		// an error here, retries are exhausted and the pipeline is
		// broken, so this worker stops rather than silently dropping
		// a computed, valid recommendation.
		w.logError("failed to publish recommendation, worker stopping", zap.String("sku", sku), zap.Error(err))
		panic(fmt.Sprintf("rulesworker: produce failure for sku %s: %v", sku, err))
	}

	w.ack(msg)
}

// evaluate parses the raw bytes, applies defaults, and runs the rules
// engine. It returns a *envelope.MalformedEnvelopeError when the bytes
// are not a parseable envelope (processOne drops these without a DLQ
// record), and a plain error for the conditions routed to the DLQ
// instead: a data payload that does not decode, a missing sku
// (spec.md §4.5), or an engine precondition violation (§7).
func (w *Worker) evaluate(raw []byte) (rulesengine.Decision, string, float64, float64, []float64, error) {
	env, err := envelope.Parse(raw)
	if err != nil {
		return rulesengine.Decision{}, "", 0, 0, nil, err
	}

	var data struct {
		SKU              *string   `json:"sku"`
		CurrentPrice     *float64  `json:"current_price"`
		Cost             *float64  `json:"cost"`
		CompetitorPrices []float64 `json:"competitor_prices"`
		InventoryLevel   *int      `json:"inventory_level"`
		DaysInStock      *int      `json:"days_in_stock"`
		DemandForecast   *float64  `json:"demand_forecast"`
	}
	if err := env.DecodeData(&data); err != nil {
		return rulesengine.Decision{}, "", 0, 0, nil, fmt.Errorf("decode raw price data: %w", err)
	}

	if data.SKU == nil || *data.SKU == "" {
		return rulesengine.Decision{}, "", 0, 0, nil, ErrMissingSKU
	}

	raw2 := models.RawPrice{
		SKU:              *data.SKU,
		CurrentPrice:     valueOr(data.CurrentPrice, Defaults.CurrentPrice),
		Cost:             valueOr(data.Cost, Defaults.Cost),
		CompetitorPrices: data.CompetitorPrices,
		InventoryLevel:   intOr(data.InventoryLevel, Defaults.InventoryLevel),
		DaysInStock:      intOr(data.DaysInStock, Defaults.DaysInStock),
		DemandForecast:   valueOr(data.DemandForecast, Defaults.DemandForecast),
	}
	if raw2.CompetitorPrices == nil {
		raw2.CompetitorPrices = []float64{}
	}

	if raw2.Cost < 0 {
		return rulesengine.Decision{}, raw2.SKU, 0, 0, nil, fmt.Errorf("engine precondition violated: cost must be non-negative, got %v", raw2.Cost)
	}

	ctx := models.PriceContext{
		SKU:              raw2.SKU,
		CurrentPrice:     raw2.CurrentPrice,
		Cost:             raw2.Cost,
		CompetitorPrices: raw2.CompetitorPrices,
		InventoryLevel:   raw2.InventoryLevel,
		DaysInStock:      raw2.DaysInStock,
		DemandForecast:   raw2.ClampDemandForecast(),
	}

	decision := w.Engine.Calculate(ctx)
	return decision, raw2.SKU, raw2.CurrentPrice, raw2.Cost, raw2.CompetitorPrices, nil
}

func (w *Worker) routeToDLQ(ctx context.Context, sku, original, reason string) {
	record := models.DLQRecord{
		SKU:               sku,
		OriginalMessage:   original,
		Error:             reason,
		Timestamp:         time.Now().UTC(),
		ProcessingService: "rules_engine",
	}
	payload, err := json.Marshal(record)
	if err != nil {
		w.logError("failed to marshal DLQ record", zap.Error(err))
		return
	}
	if err := w.DeadLetter.Publish(ctx, w.Topics.DeadLetterQueue, "", payload); err != nil {
		w.logError("failed to publish DLQ record, worker stopping", zap.Error(err))
		panic(fmt.Sprintf("rulesworker: DLQ produce failure: %v", err))
	}
	w.logInfo("routed message to DLQ", zap.String("reason", reason))
}

func (w *Worker) ack(msg *kafka.Message) {
	if err := w.Consumer.Commit(msg); err != nil {
		w.logError("failed to commit offset", zap.Error(err))
	}
}

func (w *Worker) logInfo(msg string, fields ...zap.Field) {
	if w.Logger != nil {
		w.Logger.Info(msg, fields...)
	}
}

func (w *Worker) logError(msg string, fields ...zap.Field) {
	if w.Logger != nil {
		w.Logger.Error(msg, fields...)
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
