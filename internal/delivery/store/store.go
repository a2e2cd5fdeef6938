package store

import (
	"context"

	"entregas/internal/delivery/models"
)

// Store is the keyed record store for deliveries: point lookup by id plus
// secondary lookups by courier and order.
//
// Implementations must keep a single Update on one record consistent, but no
// optimistic locking is provided: the schema has no version column, so
// concurrent status updates on the same record can lose writes.
type Store interface {
	// Create persists a new delivery and assigns its id.
	Create(ctx context.Context, d *models.Delivery) (*models.Delivery, error)
	// FindByID returns sentinel.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id int64) (*models.Delivery, error)
	// Update overwrites an existing record in full.
	Update(ctx context.Context, d *models.Delivery) (*models.Delivery, error)
	ListByCourier(ctx context.Context, courierID int64) ([]*models.Delivery, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*models.Delivery, error)
}
