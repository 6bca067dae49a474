package envelope_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iaros/pricing_pipeline/internal/envelope"
)

type payload struct {
	SKU string `json:"sku"`
}

func TestRoundTrip(t *testing.T) {
	env, err := envelope.New(envelope.EventRawPrice, payload{SKU: "SKU001"}, time.Time{}, map[string]string{"source": "test"})
	require.NoError(t, err)
	assert.False(t, env.Timestamp.IsZero())

	raw, err := env.Marshal()
	require.NoError(t, err)

	parsed, err := envelope.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, env.EventType, parsed.EventType)
	assert.Equal(t, env.Metadata, parsed.Metadata)
	assert.WithinDuration(t, env.Timestamp, parsed.Timestamp, time.Millisecond)

	var decoded payload
	require.NoError(t, parsed.DecodeData(&decoded))
	assert.Equal(t, "SKU001", decoded.SKU)
}

func TestNewStampsTimestampWhenZero(t *testing.T) {
	before := time.Now().UTC()
	env, err := envelope.New(envelope.EventRawPrice, payload{SKU: "SKU002"}, time.Time{}, nil)
	require.NoError(t, err)
	assert.True(t, !env.Timestamp.Before(before))
}

func TestParseRejectsMissingEventType(t *testing.T) {
	_, err := envelope.Parse([]byte(`{"timestamp":"2024-01-01T00:00:00Z","data":{"sku":"X"}}`))
	require.Error(t, err)
	var malformed *envelope.MalformedEnvelopeError
	assert.ErrorAs(t, err, &malformed)
}

func TestParseRejectsMissingTimestamp(t *testing.T) {
	_, err := envelope.Parse([]byte(`{"event_type":"raw_prices","data":{"sku":"X"}}`))
	require.Error(t, err)
	var malformed *envelope.MalformedEnvelopeError
	assert.ErrorAs(t, err, &malformed)
}

func TestParseRejectsMissingData(t *testing.T) {
	_, err := envelope.Parse([]byte(`{"event_type":"raw_prices","timestamp":"2024-01-01T00:00:00Z"}`))
	require.Error(t, err)
	var malformed *envelope.MalformedEnvelopeError
	assert.ErrorAs(t, err, &malformed)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := envelope.Parse([]byte(`not json`))
	require.Error(t, err)
	var malformed *envelope.MalformedEnvelopeError
	assert.ErrorAs(t, err, &malformed)
}
