package store

import (
	"context"
	"fmt"
	"sync"

	"entregas/internal/delivery/models"
	"entregas/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store for tests and local development.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[int64]models.Delivery
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[int64]models.Delivery)}
}

func (s *InMemory) Create(_ context.Context, d *models.Delivery) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := *d
	stored.ID = s.nextID
	s.byID[stored.ID] = stored

	out := stored
	return &out, nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("delivery %d: %w", id, sentinel.ErrNotFound)
	}
	out := stored
	return &out, nil
}

func (s *InMemory) Update(_ context.Context, d *models.Delivery) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[d.ID]; !ok {
		return nil, fmt.Errorf("delivery %d: %w", d.ID, sentinel.ErrNotFound)
	}
	s.byID[d.ID] = *d

	out := *d
	return &out, nil
}

func (s *InMemory) ListByCourier(_ context.Context, courierID int64) ([]*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(d models.Delivery) bool { return d.CourierID == courierID }), nil
}

func (s *InMemory) ListByOrder(_ context.Context, orderID int64) ([]*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(d models.Delivery) bool { return d.OrderID == orderID }), nil
}

func (s *InMemory) collect(match func(models.Delivery) bool) []*models.Delivery {
	out := make([]*models.Delivery, 0)
	for id := int64(1); id <= s.nextID; id++ {
		if d, ok := s.byID[id]; ok && match(d) {
			copied := d
			out = append(out, &copied)
		}
	}
	return out
}
