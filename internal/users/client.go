// Package users is the client for the usuarios identity service. The
// orchestrator uses it to verify that an account really holds the courier
// role before a delivery is assigned to it.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"entregas/pkg/platform/sentinel"
)

// CourierProfile is the role-tagged profile resolved by the identity service.
// It is a per-call value, never persisted.
type CourierProfile struct {
	ID    int64  `json:"usuarioId"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Role  string `json:"rol"`
}

// RoleCourier is the role a profile must carry to receive deliveries.
// Comparison is case-insensitive.
const RoleCourier = "REPARTIDOR"

// HasCourierRole reports whether the profile's role is the courier role.
func (p CourierProfile) HasCourierRole() bool {
	return strings.EqualFold(p.Role, RoleCourier)
}

// Client resolves accounts into role-tagged profiles. Both operations forward
// the caller's credential to the identity service.
type Client interface {
	ResolveByID(ctx context.Context, id int64, credential string) (CourierProfile, error)
	ResolveByEmail(ctx context.Context, email string, credential string) (CourierProfile, error)
}

// UpstreamError wraps a failed identity-service call, retaining the remote
// status code when one was received. It matches sentinel.ErrUnavailable.
type UpstreamError struct {
	StatusCode int // 0 when the call failed before a response arrived
	err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("users service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("users service unreachable: %v", e.err)
}

func (e *UpstreamError) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return sentinel.ErrUnavailable
}

// Is lets errors.Is(err, sentinel.ErrUnavailable) succeed for any upstream
// failure regardless of how it was constructed.
func (e *UpstreamError) Is(target error) bool {
	return target == sentinel.ErrUnavailable
}

// UpstreamStatus extracts the remote status from an upstream failure, or 0.
func UpstreamStatus(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

// HTTPClient is the transport implementation of Client. It is a thin wrapper
// over net/http; logging and caching are layered on as decorators.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ResolveByID(ctx context.Context, id int64, credential string) (CourierProfile, error) {
	return c.get(ctx, fmt.Sprintf("%s/usuarios/%d", c.baseURL, id), credential)
}

func (c *HTTPClient) ResolveByEmail(ctx context.Context, email string, credential string) (CourierProfile, error) {
	return c.get(ctx, fmt.Sprintf("%s/usuarios/email/%s", c.baseURL, url.PathEscape(email)), credential)
}

func (c *HTTPClient) get(ctx context.Context, u string, credential string) (CourierProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return CourierProfile{}, &UpstreamError{err: err}
	}
	if credential != "" {
		if !strings.HasPrefix(credential, "Bearer ") {
			credential = "Bearer " + credential
		}
		req.Header.Set("Authorization", credential)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return CourierProfile{}, &UpstreamError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return CourierProfile{}, fmt.Errorf("resolve user: %w", sentinel.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return CourierProfile{}, &UpstreamError{StatusCode: resp.StatusCode}
	}

	var profile CourierProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return CourierProfile{}, &UpstreamError{err: err}
	}
	return profile, nil
}
