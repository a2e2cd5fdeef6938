package models

import "time"

// Delivery is the lifecycle record tracking assignment and completion of a
// shipment for one order.
//
// AssignmentID duplicates OrderID for compatibility with the legacy entregas
// schema; it carries no independent meaning and is always set equal to
// OrderID at creation.
type Delivery struct {
	ID           int64
	OrderID      int64
	AssignmentID int64
	CourierID    int64
	Status       Status

	DeliveryAddress string
	CurrentLocation string
	Notes           string

	AssignedAt  time.Time
	StartedAt   *time.Time
	DeliveredAt *time.Time
}

// NewAssigned builds a freshly assigned delivery. The courier id must already
// be the verifier-resolved canonical id.
func NewAssigned(orderID, courierID int64, address string, now time.Time) *Delivery {
	return &Delivery{
		OrderID:         orderID,
		AssignmentID:    orderID,
		CourierID:       courierID,
		Status:          StatusAssigned,
		DeliveryAddress: address,
		AssignedAt:      now,
	}
}
