package producer

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer wraps a franz-go client for async publication. Produce errors are
// logged by the delivery callback; callers are not blocked on broker acks
// beyond the client's own buffering.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// New creates a Kafka producer. Returns nil if no brokers are configured so
// callers can treat eventing as disabled.
func New(brokers []string, logger *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &Producer{client: client, logger: logger}, nil
}

// Produce sends one record asynchronously.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka produce failed",
				"topic", r.Topic,
				"key", string(r.Key),
				"error", err,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close(ctx context.Context) {
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka flush on close failed", "error", err)
	}
	p.client.Close()
}
