package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// Event types emitted by the storefront.
const (
	UserRegistered = "user_registered"
	UserLoggedIn   = "user_logged_in"
	ProductCreated = "product_created"
	ProductUpdated = "product_updated"
	ProductDeleted = "product_deleted"
	OrderPlaced    = "order_placed"
)

// Event is a JSON object with at least a "type" key.
type Event map[string]any

type Publisher interface {
	PublishEvent(ctx context.Context, key string, event Event) error
	Close() error
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func encode(key string, event Event) (kafka.Message, error) {
	if _, ok := event["type"]; !ok {
		return kafka.Message{}, fmt.Errorf("kafka: event without type")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	return kafka.Message{Key: []byte(key), Value: data}, nil
}

func (p *KafkaProducer) PublishEvent(ctx context.Context, key string, event Event) error {
	msg, err := encode(key, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, Event) error { return nil }
func (Nop) Close() error                                     { return nil }
