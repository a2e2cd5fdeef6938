package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entregas/internal/delivery/handler"
	"entregas/internal/delivery/models"
	"entregas/pkg/domain"
	dErrors "entregas/pkg/domain-errors"
	"entregas/pkg/requestcontext"
)

type fakeService struct {
	createFn       func(ctx context.Context, orderID, courierID int64, address string) (*models.Delivery, error)
	updateStatusFn func(ctx context.Context, deliveryID int64, token string) (*models.Delivery, error)
	listByOrderFn  func(ctx context.Context, orderID int64) ([]*models.Delivery, error)
	listByEmailFn  func(ctx context.Context, email string) ([]*models.Delivery, error)
}

func (f *fakeService) Create(ctx context.Context, orderID, courierID int64, address string) (*models.Delivery, error) {
	return f.createFn(ctx, orderID, courierID, address)
}

func (f *fakeService) UpdateStatus(ctx context.Context, deliveryID int64, token string) (*models.Delivery, error) {
	return f.updateStatusFn(ctx, deliveryID, token)
}

func (f *fakeService) ListByOrder(ctx context.Context, orderID int64) ([]*models.Delivery, error) {
	return f.listByOrderFn(ctx, orderID)
}

func (f *fakeService) ListByCourierEmail(ctx context.Context, email string) ([]*models.Delivery, error) {
	return f.listByEmailFn(ctx, email)
}

func newRouter(svc *fakeService, principal *domain.Principal) http.Handler {
	r := chi.NewRouter()
	if principal != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := requestcontext.WithPrincipal(req.Context(), *principal)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	handler.New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func adminPrincipal() *domain.Principal {
	return &domain.Principal{Subject: "admin@tienda.test", Authorities: []string{domain.AuthorityAdmin}}
}

func courierPrincipal() *domain.Principal {
	return &domain.Principal{Subject: "ana@tienda.test", Authorities: []string{domain.AuthorityCourier}}
}

func sampleDelivery() *models.Delivery {
	d := models.NewAssigned(10, 5, "Calle Falsa 123", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	d.ID = 1
	return d
}

func TestCreateDelivery(t *testing.T) {
	t.Run("creates and returns 201", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(_ context.Context, orderID, courierID int64, address string) (*models.Delivery, error) {
				assert.Equal(t, int64(10), orderID)
				assert.Equal(t, int64(5), courierID)
				assert.Equal(t, "Calle Falsa 123", address)
				return sampleDelivery(), nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/api/entregas",
			strings.NewReader(`{"orderId": 10, "courierId": 5, "deliveryAddress": "Calle Falsa 123"}`))
		rec := httptest.NewRecorder()
		newRouter(svc, adminPrincipal()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["id"])
		assert.Equal(t, "Asignado", body["status"])
		assert.Equal(t, float64(5), body["courierId"])
		assert.NotContains(t, body, "deliveredAt")
	})

	t.Run("requires admin authority", func(t *testing.T) {
		svc := &fakeService{}

		req := httptest.NewRequest(http.MethodPost, "/api/entregas", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		newRouter(svc, courierPrincipal()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodPost, "/api/entregas", strings.NewReader(`{}`))
		newRouter(svc, nil).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		svc := &fakeService{}

		req := httptest.NewRequest(http.MethodPost, "/api/entregas", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		newRouter(svc, adminPrincipal()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("translates service errors to the error envelope", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(context.Context, int64, int64, string) (*models.Delivery, error) {
				return nil, dErrors.New(dErrors.CodeInvalidRole, "user 5 is not a courier, role is CLIENTE")
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/api/entregas",
			strings.NewReader(`{"orderId": 10, "courierId": 5, "deliveryAddress": "x"}`))
		rec := httptest.NewRecorder()
		newRouter(svc, adminPrincipal()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(http.StatusBadRequest), body["status"])
		assert.Equal(t, "user 5 is not a courier, role is CLIENTE", body["message"])
		assert.Equal(t, "/api/entregas", body["path"])
		assert.Contains(t, body, "timestamp")
	})
}

func TestUpdateDeliveryStatus(t *testing.T) {
	t.Run("accepts a raw token body", func(t *testing.T) {
		svc := &fakeService{
			updateStatusFn: func(_ context.Context, id int64, token string) (*models.Delivery, error) {
				assert.Equal(t, int64(1), id)
				assert.Equal(t, "ENTREGADO", token)
				d := sampleDelivery()
				d.Status = models.StatusDelivered
				return d, nil
			},
		}

		req := httptest.NewRequest(http.MethodPut, "/api/entregas/1/estado", strings.NewReader("ENTREGADO"))
		rec := httptest.NewRecorder()
		newRouter(svc, courierPrincipal()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Entregado", body["status"])
	})

	t.Run("accepts a JSON-quoted token body", func(t *testing.T) {
		svc := &fakeService{
			updateStatusFn: func(_ context.Context, _ int64, token string) (*models.Delivery, error) {
				assert.Equal(t, "En camino", token)
				d := sampleDelivery()
				d.Status = models.StatusInTransit
				return d, nil
			},
		}

		req := httptest.NewRequest(http.MethodPut, "/api/entregas/1/estado", strings.NewReader(`"En camino"`))
		rec := httptest.NewRecorder()
		newRouter(svc, courierPrincipal()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects a non-numeric id", func(t *testing.T) {
		svc := &fakeService{}

		req := httptest.NewRequest(http.MethodPut, "/api/entregas/abc/estado", strings.NewReader("ENTREGADO"))
		rec := httptest.NewRecorder()
		newRouter(svc, adminPrincipal()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		svc := &fakeService{}

		req := httptest.NewRequest(http.MethodPut, "/api/entregas/1/estado", strings.NewReader("  "))
		rec := httptest.NewRecorder()
		newRouter(svc, adminPrincipal()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps unknown delivery to 404", func(t *testing.T) {
		svc := &fakeService{
			updateStatusFn: func(context.Context, int64, string) (*models.Delivery, error) {
				return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
			},
		}

		req := httptest.NewRequest(http.MethodPut, "/api/entregas/1/estado", strings.NewReader("ENTREGADO"))
		rec := httptest.NewRecorder()
		newRouter(svc, adminPrincipal()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("requires admin or courier", func(t *testing.T) {
		svc := &fakeService{}

		req := httptest.NewRequest(http.MethodPut, "/api/entregas/1/estado", strings.NewReader("ENTREGADO"))
		rec := httptest.NewRecorder()
		newRouter(svc, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListForCourier(t *testing.T) {
	t.Run("lists by the principal's email", func(t *testing.T) {
		svc := &fakeService{
			listByEmailFn: func(_ context.Context, email string) ([]*models.Delivery, error) {
				assert.Equal(t, "ana@tienda.test", email)
				return []*models.Delivery{sampleDelivery()}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/entregas/repartidor", nil)
		rec := httptest.NewRecorder()
		newRouter(svc, courierPrincipal()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, float64(10), body[0]["orderId"])
	})

	t.Run("forwards the upstream status", func(t *testing.T) {
		svc := &fakeService{
			listByEmailFn: func(context.Context, string) ([]*models.Delivery, error) {
				return nil, dErrors.New(dErrors.CodeUpstream, "failed to communicate with users service").
					WithStatus(http.StatusServiceUnavailable)
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/entregas/repartidor", nil)
		rec := httptest.NewRecorder()
		newRouter(svc, courierPrincipal()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("rejects anonymous callers", func(t *testing.T) {
		svc := &fakeService{}

		req := httptest.NewRequest(http.MethodGet, "/api/entregas/repartidor", nil)
		rec := httptest.NewRecorder()
		newRouter(svc, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListByOrder(t *testing.T) {
	t.Run("is public and returns an empty array for no matches", func(t *testing.T) {
		svc := &fakeService{
			listByOrderFn: func(_ context.Context, orderID int64) ([]*models.Delivery, error) {
				assert.Equal(t, int64(99), orderID)
				return []*models.Delivery{}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/entregas/orden/99", nil)
		rec := httptest.NewRecorder()
		newRouter(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("rejects a non-numeric order id", func(t *testing.T) {
		svc := &fakeService{}

		req := httptest.NewRequest(http.MethodGet, "/api/entregas/orden/abc", nil)
		rec := httptest.NewRecorder()
		newRouter(svc, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
