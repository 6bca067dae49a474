// Package envelope implements the canonical JSON wrapper used for every
// inter-service message in the pricing pipeline: event_type, timestamp,
// data, and a free-form metadata map.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type tags carried in Envelope.EventType.
const (
	EventRawPrice        = "raw_prices"
	EventRecommendedPrice = "recommended_price"
)

// Envelope is the standard wrapper placed around every message exchanged
// between the scraper, rules worker, pricing API, and audit worker.
type Envelope struct {
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New builds an envelope around data, stamping UTC now if ts is the zero
// value.
func New(eventType string, data interface{}, ts time.Time, metadata map[string]string) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal data: %w", err)
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &Envelope{
		EventType: eventType,
		Timestamp: ts,
		Data:      raw,
		Metadata:  metadata,
	}, nil
}

// Marshal serializes the envelope to a single newline-free JSON record.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Parse deserializes raw bytes into an Envelope, returning a
// *MalformedEnvelopeError when event_type, timestamp, or data is absent or
// of the wrong shape.
func Parse(raw []byte) (*Envelope, error) {
	var shape struct {
		EventType *string            `json:"event_type"`
		Timestamp *time.Time         `json:"timestamp"`
		Data      json.RawMessage    `json:"data"`
		Metadata  map[string]string  `json:"metadata,omitempty"`
	}

	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, &MalformedEnvelopeError{Reason: "invalid JSON", Cause: err}
	}

	if shape.EventType == nil || *shape.EventType == "" {
		return nil, &MalformedEnvelopeError{Reason: "missing event_type"}
	}
	if shape.Timestamp == nil {
		return nil, &MalformedEnvelopeError{Reason: "missing or malformed timestamp"}
	}
	if len(shape.Data) == 0 {
		return nil, &MalformedEnvelopeError{Reason: "missing data"}
	}
	if shape.Data[0] != '{' {
		return nil, &MalformedEnvelopeError{Reason: "data is not a JSON object"}
	}

	return &Envelope{
		EventType: *shape.EventType,
		Timestamp: *shape.Timestamp,
		Data:      shape.Data,
		Metadata:  shape.Metadata,
	}, nil
}

// DecodeData unmarshals the envelope's Data payload into v.
func (e *Envelope) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}
