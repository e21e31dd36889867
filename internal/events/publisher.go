package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"github.com/nevelline/storefront/internal/repository"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "checkout-attempts"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes checkout attempt events to Kafka, keyed by attempt id so the events of
// one attempt stay ordered within a partition.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(topic string, brokers ...string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &Publisher{writer: w}
}

func (p *Publisher) Publish(ctx context.Context, key, eventType string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

// Record publishes an attempt directly, for deployments without the Postgres outbox.
func (p *Publisher) Record(ctx context.Context, a domain.CheckoutAttempt) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}
	return p.Publish(ctx, a.ID, repository.EventType(a.State), payload)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
