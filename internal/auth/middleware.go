package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"entregas/pkg/domain"
	"entregas/pkg/platform/httputil"
	"entregas/pkg/requestcontext"
)

const bearerPrefix = "Bearer "

// Authenticate derives a principal from the Authorization header and stores
// it, together with the raw credential, in the request context.
//
// The middleware is fail-open: an absent, malformed, or expired credential
// leaves the request anonymous instead of rejecting it; downstream guards
// decide whether anonymous access is acceptable. Validation errors are logged
// and never surfaced to the client here. If a principal is already present in
// the context it is not overwritten (first-wins).
func Authenticate(verifier *TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if _, ok := requestcontext.Principal(ctx); ok {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("credential rejected, continuing anonymous",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, principal)
			ctx = requestcontext.WithCredential(ctx, authHeader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyAuthority rejects requests whose principal lacks all of the given
// authorities: 401 for anonymous callers, 403 for authenticated callers
// without a matching authority.
func RequireAnyAuthority(authorities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := requestcontext.Principal(r.Context())
			if !ok {
				httputil.WriteError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			if !principal.HasAnyAuthority(authorities...) {
				httputil.WriteError(w, r, http.StatusForbidden, "insufficient authority")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthority is RequireAnyAuthority for a single authority.
func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return RequireAnyAuthority(authority)
}

// Admin and courier guards used by the delivery routes.
var (
	RequireAdmin          = RequireAuthority(domain.AuthorityAdmin)
	RequireAdminOrCourier = RequireAnyAuthority(domain.AuthorityAdmin, domain.AuthorityCourier)
)
