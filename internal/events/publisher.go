// Package events defines the Kafka contracts of the delivery service: the
// lifecycle events it publishes and the order intake events it consumes.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	deliverymetrics "entregas/internal/delivery/metrics"
	"entregas/internal/delivery/models"
)

// Topic names are shared with the order and notification services; renaming
// one is a cross-service change.
const (
	TopicDeliveryAssigned  = "entregas-asignadas"
	TopicDeliveryCompleted = "entregas-completadas"
	TopicOrderCreated      = "pedidos-creados"
)

// DeliveryEvent is the wire payload for both lifecycle topics. Status carries
// the canonical status name, not the display label.
type DeliveryEvent struct {
	OrderID    int64     `json:"orderId"`
	CourierID  int64     `json:"courierId"`
	Status     string    `json:"status"`
	AssignedAt time.Time `json:"assignedAt"`
}

// Producer is the broker surface the publisher needs. Production is
// asynchronous; delivery failures surface in the producer's logs, not here.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte)
}

// Publisher emits delivery lifecycle events keyed by delivery id. Events are
// published after the store write, so a crash in between loses the event but
// never the record.
type Publisher struct {
	producer Producer
	logger   *slog.Logger
	metrics  *deliverymetrics.Metrics
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithMetrics attaches the delivery metrics module.
func WithMetrics(m *deliverymetrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(producer Producer, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{producer: producer, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishAssigned emits the assignment event for a newly created delivery.
func (p *Publisher) PublishAssigned(ctx context.Context, d *models.Delivery) {
	p.publish(ctx, TopicDeliveryAssigned, d)
}

// PublishCompleted emits the completion event when a delivery reaches
// Entregado.
func (p *Publisher) PublishCompleted(ctx context.Context, d *models.Delivery) {
	p.publish(ctx, TopicDeliveryCompleted, d)
}

func (p *Publisher) publish(ctx context.Context, topic string, d *models.Delivery) {
	evt := DeliveryEvent{
		OrderID:    d.OrderID,
		CourierID:  d.CourierID,
		Status:     string(d.Status),
		AssignedAt: d.AssignedAt,
	}
	value, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("failed to encode delivery event",
			"topic", topic,
			"delivery_id", d.ID,
			"error", err,
		)
		return
	}

	key := []byte(strconv.FormatInt(d.ID, 10))
	p.producer.Produce(ctx, topic, key, value)
	if p.metrics != nil {
		p.metrics.IncrementEventPublished(topic)
	}
	p.logger.Info("delivery event published",
		"topic", topic,
		"delivery_id", d.ID,
		"order_id", d.OrderID,
		"status", evt.Status,
	)
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishAssigned(context.Context, *models.Delivery)  {}
func (NopPublisher) PublishCompleted(context.Context, *models.Delivery) {}
