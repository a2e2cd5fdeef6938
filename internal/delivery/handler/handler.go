// Package handler exposes the delivery HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"entregas/internal/auth"
	"entregas/internal/delivery/models"
	dErrors "entregas/pkg/domain-errors"
	"entregas/pkg/platform/httputil"
	"entregas/pkg/requestcontext"
)

// maxBodyBytes bounds request bodies; delivery payloads are small.
const maxBodyBytes = 1 << 16

// DeliveryService is the slice of the delivery service the HTTP layer uses.
type DeliveryService interface {
	Create(ctx context.Context, orderID, courierID int64, address string) (*models.Delivery, error)
	UpdateStatus(ctx context.Context, deliveryID int64, token string) (*models.Delivery, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*models.Delivery, error)
	ListByCourierEmail(ctx context.Context, email string) ([]*models.Delivery, error)
}

type Handler struct {
	deliveries DeliveryService
	logger     *slog.Logger
}

func New(deliveries DeliveryService, logger *slog.Logger) *Handler {
	return &Handler{deliveries: deliveries, logger: logger}
}

// Register mounts the delivery routes. Creation is admin only, status updates
// and the courier listing accept admins and couriers, and the order lookup is
// public.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/entregas", func(r chi.Router) {
		r.With(auth.RequireAdmin).Post("/", h.create)
		r.With(auth.RequireAdminOrCourier).Put("/{id}/estado", h.updateStatus)
		r.With(auth.RequireAdminOrCourier).Get("/repartidor", h.listForCourier)
		r.Get("/orden/{orderId}", h.listByOrder)
	})
}

type createRequest struct {
	OrderID         int64  `json:"orderId"`
	CourierID       int64  `json:"courierId"`
	DeliveryAddress string `json:"deliveryAddress"`
}

type deliveryResponse struct {
	ID              int64      `json:"id"`
	OrderID         int64      `json:"orderId"`
	CourierID       int64      `json:"courierId"`
	Status          string     `json:"status"`
	DeliveryAddress string     `json:"deliveryAddress"`
	CurrentLocation string     `json:"currentLocation,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	AssignedAt      time.Time  `json:"assignedAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	DeliveredAt     *time.Time `json:"deliveredAt,omitempty"`
}

func toResponse(d *models.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:              d.ID,
		OrderID:         d.OrderID,
		CourierID:       d.CourierID,
		Status:          d.Status.Label(),
		DeliveryAddress: d.DeliveryAddress,
		CurrentLocation: d.CurrentLocation,
		Notes:           d.Notes,
		AssignedAt:      d.AssignedAt,
		StartedAt:       d.StartedAt,
		DeliveredAt:     d.DeliveredAt,
	}
}

func toResponseList(ds []*models.Delivery) []deliveryResponse {
	out := make([]deliveryResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toResponse(d))
	}
	return out
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.deliveries.Create(r.Context(), req.OrderID, req.CourierID, req.DeliveryAddress)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}
	// The status arrives as a raw text body; tolerate a JSON-quoted string.
	token := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if token == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, "status is required")
		return
	}

	d, err := h.deliveries.UpdateStatus(r.Context(), id, token)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) listForCourier(w http.ResponseWriter, r *http.Request) {
	principal, ok := requestcontext.Principal(r.Context())
	if !ok {
		httputil.WriteError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	ds, err := h.deliveries.ListByCourierEmail(r.Context(), principal.Subject)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponseList(ds))
}

func (h *Handler) listByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		httputil.WriteError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	ds, err := h.deliveries.ListByOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponseList(ds))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := dErrors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("delivery request failed", "path", r.URL.Path, "error", err)
	} else {
		h.logger.Warn("delivery request rejected", "path", r.URL.Path, "error", err)
	}
	httputil.WriteError(w, r, status, dErrors.MessageOf(err))
}
