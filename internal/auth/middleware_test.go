package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entregas/pkg/domain"
	"entregas/pkg/requestcontext"
)

type captured struct {
	principal    domain.Principal
	hasPrincipal bool
	credential   string
}

func capture(out *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out.principal, out.hasPrincipal = requestcontext.Principal(r.Context())
		out.credential = requestcontext.Credential(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	verifier := NewTokenVerifier(testSigningKey)
	mw := Authenticate(verifier, slog.New(slog.DiscardHandler))

	validToken := signToken(t, testSigningKey, Claims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin@tienda.test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	t.Run("valid bearer token populates principal and credential", func(t *testing.T) {
		var got captured
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)

		mw(capture(&got)).ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, got.hasPrincipal)
		assert.Equal(t, "admin@tienda.test", got.principal.Subject)
		assert.Equal(t, "Bearer "+validToken, got.credential)
	})

	t.Run("missing header continues anonymous", func(t *testing.T) {
		var got captured
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		mw(capture(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, got.hasPrincipal)
		assert.Empty(t, got.credential)
	})

	t.Run("invalid token continues anonymous instead of rejecting", func(t *testing.T) {
		var got captured
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		mw(capture(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, got.hasPrincipal)
	})

	t.Run("non-bearer scheme is ignored", func(t *testing.T) {
		var got captured
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		mw(capture(&got)).ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, got.hasPrincipal)
	})

	t.Run("existing principal wins over the header", func(t *testing.T) {
		var got captured
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)

		existing := domain.Principal{Subject: "first@tienda.test", Authorities: []string{domain.AuthorityUser}}
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), existing))

		mw(capture(&got)).ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, got.hasPrincipal)
		assert.Equal(t, "first@tienda.test", got.principal.Subject)
	})
}

func TestAuthorityGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(guard func(http.Handler) http.Handler, principal *domain.Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if principal != nil {
			req = req.WithContext(requestcontext.WithPrincipal(req.Context(), *principal))
		}
		rec := httptest.NewRecorder()
		guard(ok).ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous gets 401", func(t *testing.T) {
		rec := serve(RequireAdmin, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong authority gets 403", func(t *testing.T) {
		p := domain.Principal{Subject: "u", Authorities: []string{domain.AuthorityUser}}
		rec := serve(RequireAdmin, &p)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes admin guard", func(t *testing.T) {
		p := domain.Principal{Subject: "u", Authorities: []string{domain.AuthorityAdmin}}
		rec := serve(RequireAdmin, &p)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("courier passes admin-or-courier guard", func(t *testing.T) {
		p := domain.Principal{Subject: "u", Authorities: []string{domain.AuthorityCourier}}
		rec := serve(RequireAdminOrCourier, &p)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("plain user fails admin-or-courier guard", func(t *testing.T) {
		p := domain.Principal{Subject: "u", Authorities: []string{domain.AuthorityUser}}
		rec := serve(RequireAdminOrCourier, &p)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
