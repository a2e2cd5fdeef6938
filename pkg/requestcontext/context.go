// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// This package defines context keys and getter/setter functions for values that
// are typically set by middleware but consumed by services. By keeping this
// package free of net/http dependencies, services can import only what they
// need without pulling in HTTP-related code.
//
// Usage in services (read values):
//
//	principal, ok := requestcontext.Principal(ctx)
//	credential := requestcontext.Credential(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithPrincipal(ctx, principal)
//	ctx = requestcontext.WithCredential(ctx, rawToken)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"entregas/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	principalKey   struct{}
	credentialKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyPrincipal   = principalKey{}
	ContextKeyCredential  = credentialKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Principal retrieves the authenticated principal from the context. The second
// return value is false for anonymous requests.
func Principal(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(domain.Principal)
	return p, ok
}

// WithPrincipal injects an authenticated principal into the context.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// Credential retrieves the raw bearer credential from the context. Services
// forward it to upstream collaborators that require the caller's token.
// Empty for anonymous requests.
func Credential(ctx context.Context) string {
	if c, ok := ctx.Value(ContextKeyCredential).(string); ok {
		return c
	}
	return ""
}

// WithCredential injects the raw bearer credential into the context.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, ContextKeyCredential, credential)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to time.Now()
// for non-HTTP contexts such as consumers and tests that do not inject one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
