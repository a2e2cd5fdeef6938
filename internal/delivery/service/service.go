package service

import (
	"context"
	"errors"
	"log/slog"

	deliverymetrics "entregas/internal/delivery/metrics"
	"entregas/internal/delivery/models"
	"entregas/internal/delivery/store"
	"entregas/internal/users"
	dErrors "entregas/pkg/domain-errors"
	"entregas/pkg/platform/sentinel"
	"entregas/pkg/requestcontext"
)

// EventPublisher emits lifecycle events after a delivery has been persisted.
// Publication is fire-and-forget; implementations must not block the caller
// on broker acknowledgment.
type EventPublisher interface {
	PublishAssigned(ctx context.Context, d *models.Delivery)
	PublishCompleted(ctx context.Context, d *models.Delivery)
}

// Service orchestrates the delivery lifecycle: creation, status transitions,
// automatic assignment from order intake, and reads.
//
// Known limitation: any recognized status token may overwrite any prior
// state. There is no transition graph and no record versioning, so two
// concurrent updates to the same delivery race (last write wins).
type Service struct {
	store  store.Store
	users  users.Client
	events EventPublisher
	logger *slog.Logger

	metrics *deliverymetrics.Metrics

	fallbackCourierID int64
	systemCredential  string
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches the delivery metrics module.
func WithMetrics(m *deliverymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFallbackCourier sets the fixed courier used by automatic assignment and
// the system credential forwarded to the verifier on that path.
func WithFallbackCourier(id int64, credential string) Option {
	return func(s *Service) {
		s.fallbackCourierID = id
		s.systemCredential = credential
	}
}

func New(st store.Store, usersClient users.Client, events EventPublisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:             st,
		users:             usersClient,
		events:            events,
		logger:            logger,
		fallbackCourierID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create assigns a delivery to a courier. The caller-facing boundary must
// already have verified admin authority.
//
// The courier id is resolved through the identity verifier with the caller's
// credential; the persisted courier id is the verifier's canonical id, not
// necessarily the one supplied. Verifier failures on this path are hard
// failures: nothing is persisted and no event is published.
func (s *Service) Create(ctx context.Context, orderID, courierID int64, address string) (*models.Delivery, error) {
	if orderID <= 0 || courierID <= 0 || address == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "orderId, courierId and deliveryAddress are required")
	}

	s.logger.Info("creating delivery", "order_id", orderID, "courier_id", courierID)

	profile, err := s.users.ResolveByID(ctx, courierID, requestcontext.Credential(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "no user found with id %d", courierID)
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest,
				"could not verify courier: users service unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not verify courier")
		}
	}
	if !profile.HasCourierRole() {
		return nil, dErrors.Newf(dErrors.CodeInvalidRole,
			"user %d is not a courier, role is %s", courierID, profile.Role)
	}

	d := models.NewAssigned(orderID, profile.ID, address, requestcontext.Now(ctx))
	saved, err := s.store.Create(ctx, d)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist delivery")
	}

	s.events.PublishAssigned(ctx, saved)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return saved, nil
}

// UpdateStatus maps an external status token onto the delivery. Unrecognized
// tokens fail without touching the record. Reaching En_camino stamps
// StartedAt; reaching Entregado stamps DeliveredAt and publishes the
// completion event. No other transition publishes.
func (s *Service) UpdateStatus(ctx context.Context, deliveryID int64, token string) (*models.Delivery, error) {
	d, err := s.store.FindByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load delivery")
	}

	status, ok := models.ParseStatus(token)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "Estado no válido: %s", token)
	}

	now := requestcontext.Now(ctx)
	d.Status = status
	switch status {
	case models.StatusInTransit:
		d.StartedAt = &now
	case models.StatusDelivered:
		d.DeliveredAt = &now
	}

	saved, err := s.store.Update(ctx, d)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist delivery")
	}

	if status == models.StatusDelivered {
		s.events.PublishCompleted(ctx, saved)
	}
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(status))
	}
	return saved, nil
}

// AutoAssign creates a delivery for a newly created order using the
// configured fallback courier. It is driven by the order-created consumer,
// not by a caller.
//
// Unlike Create, a verifier outage here degrades instead of failing: the
// fallback id is used unverified so order intake keeps flowing. A fallback
// account that resolves to a non-courier role still fails hard; a
// misconfigured fallback must not silently assign.
func (s *Service) AutoAssign(ctx context.Context, orderID int64, address string) (*models.Delivery, error) {
	courierID := s.fallbackCourierID
	s.logger.Info("auto-assigning courier", "order_id", orderID, "courier_id", courierID)

	profile, err := s.users.ResolveByID(ctx, courierID, s.systemCredential)
	switch {
	case err == nil:
		if !profile.HasCourierRole() {
			return nil, dErrors.Newf(dErrors.CodeInvalidRole,
				"user %d is not a courier, role is %s", courierID, profile.Role)
		}
		courierID = profile.ID
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, sentinel.ErrNotFound):
		s.logger.Warn("users service unavailable, assigning fallback courier unverified",
			"order_id", orderID,
			"courier_id", courierID,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementAutoAssignDegraded()
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not verify courier")
	}

	d := models.NewAssigned(orderID, courierID, address, requestcontext.Now(ctx))
	saved, err := s.store.Create(ctx, d)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist delivery")
	}

	s.events.PublishAssigned(ctx, saved)
	if s.metrics != nil {
		s.metrics.IncrementAutoAssigned()
	}
	return saved, nil
}

// ListByCourier returns all deliveries assigned to the courier.
func (s *Service) ListByCourier(ctx context.Context, courierID int64) ([]*models.Delivery, error) {
	out, err := s.store.ListByCourier(ctx, courierID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	return out, nil
}

// ListByOrder returns all deliveries created for the order.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]*models.Delivery, error) {
	out, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	return out, nil
}

// ListByCourierEmail resolves the email through the identity verifier and
// delegates to ListByCourier with the canonical id.
func (s *Service) ListByCourierEmail(ctx context.Context, email string) ([]*models.Delivery, error) {
	profile, err := s.users.ResolveByEmail(ctx, email, requestcontext.Credential(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "no courier found for email: %s", email)
		}
		upstream := dErrors.Wrap(err, dErrors.CodeUpstream, "failed to communicate with users service")
		if status := users.UpstreamStatus(err); status != 0 {
			upstream = upstream.WithStatus(status)
		}
		return nil, upstream
	}
	return s.ListByCourier(ctx, profile.ID)
}
