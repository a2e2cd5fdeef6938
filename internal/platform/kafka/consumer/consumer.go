package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-agnostic record handed to handlers.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler processes one message. Returning an error does not stop the
// consumer; redelivery is the broker client's concern.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer wraps a franz-go group consumer and dispatches records to a
// handler. Consumer-group balancing and offset management are delegated to
// the client (auto-commit), so each message is handled at-least-once.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New creates a group consumer for the given topics. Returns nil if no
// brokers are configured so callers can treat consumption as disabled.
func New(brokers []string, groupID string, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			msg := &Message{
				Topic:     r.Topic,
				Key:       r.Key,
				Value:     r.Value,
				Timestamp: r.Timestamp,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.Error("message handling failed",
					"topic", r.Topic,
					"key", string(r.Key),
					"error", err,
				)
			}
		})
	}
}

// Close releases the client, leaving the group.
func (c *Consumer) Close() {
	if c != nil {
		c.client.Close()
	}
}
