// Package broker wraps the Kafka client shared by every pipeline
// component that reads or writes one of the three topics named in
// spec.md §6 (raw_prices, recommended_prices, dead_letter_queue). It is
// grounded in the teacher repository's
// data_analytics/engines/data_pipeline_engine.go, which is the only
// place in the examples pack that wires confluent-kafka-go end to end.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// Topics names the three topics the pipeline exchanges messages on.
// Names are configurable (spec.md §6); these are the defaults.
type Topics struct {
	RawPrices         string
	RecommendedPrices string
	DeadLetterQueue   string
}

// DefaultTopics returns the topic names spec.md names explicitly.
func DefaultTopics() Topics {
	return Topics{
		RawPrices:         "raw_prices",
		RecommendedPrices: "recommended_prices",
		DeadLetterQueue:   "dead_letter_queue",
	}
}

// Producer publishes partition-keyed messages to a single broker.
// Partition key is always the SKU per spec.md §6/§5, except for DLQ
// records which require no partition key.
type Producer struct {
	p *kafka.Producer
}

// NewProducer dials the broker at bootstrapServers with the retry count
// spec.md's "Downstream produce failure" policy implies (acks=all,
// retries up to the configured attempts, then the caller is expected to
// crash loudly on a permanent failure).
func NewProducer(bootstrapServers string, retries int) (*Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": bootstrapServers,
		"acks":              "all",
		"retries":           retries,
	})
	if err != nil {
		return nil, fmt.Errorf("broker: create producer: %w", err)
	}
	return &Producer{p: p}, nil
}

// Publish sends value to topic, partitioned by key when key is
// non-empty. It blocks until the broker's delivery report confirms the
// write or returns an error; spec.md requires produce failures to be
// retried up to the producer's configured attempts and then to crash
// the process loudly, which is the caller's responsibility on error.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	deliveryChan := make(chan kafka.Event, 1)

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}
	if key != "" {
		msg.Key = []byte(key)
	}

	if err := p.p.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("broker: produce to %s: %w", topic, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case event := <-deliveryChan:
		report := event.(*kafka.Message)
		if report.TopicPartition.Error != nil {
			return fmt.Errorf("broker: delivery to %s failed: %w", topic, report.TopicPartition.Error)
		}
		return nil
	}
}

// Close flushes outstanding deliveries and releases the producer.
func (p *Producer) Close() {
	p.p.Flush(5000)
	p.p.Close()
}

// Consumer wraps a Kafka consumer subscribed to a single topic under a
// given consumer group, matching spec.md §4.5's "single consumer group
// guarantees per-partition ordering" requirement.
type Consumer struct {
	c *kafka.Consumer
}

// NewConsumer subscribes to topic under groupID, reading from the
// earliest offset on first run.
func NewConsumer(bootstrapServers, groupID, topic string) (*Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": bootstrapServers,
		"group.id":          groupID,
		"auto.offset.reset": "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("broker: create consumer: %w", err)
	}
	if err := c.Subscribe(topic, nil); err != nil {
		return nil, fmt.Errorf("broker: subscribe to %s: %w", topic, err)
	}
	return &Consumer{c: c}, nil
}

// ReadMessage blocks until the next message arrives or ctx is
// cancelled. The worker decides whether to ack (commit) after
// processing, per spec.md §4.7's "do not ack on transient DB error" and
// §4.5's "no in-process retry" policies.
func (c *Consumer) ReadMessage(ctx context.Context) (*kafka.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		msg, err := c.c.ReadMessage(250 * time.Millisecond) // short poll so ctx cancellation is responsive
		if err == nil {
			return msg, nil
		}
		if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.IsTimeout() {
			continue
		}
		return nil, err
	}
}

// Commit acknowledges msg, advancing the consumer group's offset.
func (c *Consumer) Commit(msg *kafka.Message) error {
	_, err := c.c.CommitMessage(msg)
	return err
}

// Close releases the consumer.
func (c *Consumer) Close() error {
	return c.c.Close()
}
