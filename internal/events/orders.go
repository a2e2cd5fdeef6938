package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"entregas/internal/delivery/models"
	"entregas/internal/platform/kafka/consumer"
)

// OrderCreatedEvent is the payload published by the order service when a new
// order is placed.
type OrderCreatedEvent struct {
	OrderID         int64     `json:"orderId"`
	DeliveryAddress string    `json:"deliveryAddress"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AutoAssigner is the slice of the delivery service the intake handler needs.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, orderID int64, address string) (*models.Delivery, error)
}

// OrderHandler consumes order-created events and triggers automatic courier
// assignment. Handler errors are logged by the consumer loop and the offset
// advances regardless; a malformed or failed event is not retried.
type OrderHandler struct {
	deliveries AutoAssigner
	logger     *slog.Logger
}

func NewOrderHandler(deliveries AutoAssigner, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{deliveries: deliveries, logger: logger}
}

func (h *OrderHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var evt OrderCreatedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("decode order created event: %w", err)
	}
	if evt.OrderID <= 0 {
		return fmt.Errorf("order created event missing orderId")
	}

	d, err := h.deliveries.AutoAssign(ctx, evt.OrderID, evt.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("auto-assign order %d: %w", evt.OrderID, err)
	}

	h.logger.Info("delivery created from order event",
		"order_id", evt.OrderID,
		"delivery_id", d.ID,
		"courier_id", d.CourierID,
	)
	return nil
}
