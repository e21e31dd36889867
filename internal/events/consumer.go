package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nevelline/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AttemptHandler receives each decoded attempt event with its event type header.
type AttemptHandler func(ctx context.Context, eventType string, a domain.CheckoutAttempt) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer tails the attempt topic. An empty group id reads the topic from the
// latest offset without committing.
type Consumer struct {
	reader messageReader
	handle AttemptHandler
	logger *zap.Logger
}

func NewConsumer(topic, groupID string, handle AttemptHandler, logger *zap.Logger, brokers ...string) *Consumer {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	}
	if groupID == "" {
		cfg.StartOffset = kafka.LastOffset
	}
	return &Consumer{reader: kafka.NewReader(cfg), handle: handle, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Warn("error reading attempt event", zap.Error(err))
		return
	}

	var a domain.CheckoutAttempt
	if err := json.Unmarshal(m.Value, &a); err != nil {
		c.logger.Warn("error parsing attempt event",
			zap.String("key", string(m.Key)),
			zap.Error(err))
		return
	}

	if err := c.handle(ctx, headerValue(m.Headers, "event_type"), a); err != nil {
		c.logger.Warn("attempt handler failed",
			zap.String("attempt_id", a.ID),
			zap.Error(err))
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
