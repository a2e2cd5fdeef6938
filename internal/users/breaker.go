package users

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"entregas/pkg/platform/circuit"
	"entregas/pkg/platform/sentinel"
)

var errCircuitOpen = errors.New("users circuit open")

// probeInterval is how many short-circuited calls pass between trial calls
// while the circuit is open. Probes are what let the circuit close again.
const probeInterval = 10

// BreakerClient short-circuits identity lookups while the users service is
// down. While the circuit is open most calls fail immediately with an
// upstream error, which callers already treat as ErrUnavailable, so the
// degrade and hard-fail paths behave exactly as they do during a real outage.
// Every probeInterval-th call is let through to test for recovery.
//
// A not-found response is a healthy answer from the service and counts as a
// success.
type BreakerClient struct {
	next    Client
	breaker *circuit.Breaker
	logger  *slog.Logger

	attempts atomic.Uint64
}

func NewBreakerClient(next Client, logger *slog.Logger) *BreakerClient {
	return &BreakerClient{
		next: next,
		breaker: circuit.New("users",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2),
		),
		logger: logger,
	}
}

func (c *BreakerClient) ResolveByID(ctx context.Context, id int64, credential string) (CourierProfile, error) {
	return c.resolve(func() (CourierProfile, error) {
		return c.next.ResolveByID(ctx, id, credential)
	})
}

func (c *BreakerClient) ResolveByEmail(ctx context.Context, email string, credential string) (CourierProfile, error) {
	return c.resolve(func() (CourierProfile, error) {
		return c.next.ResolveByEmail(ctx, email, credential)
	})
}

func (c *BreakerClient) resolve(call func() (CourierProfile, error)) (CourierProfile, error) {
	if c.breaker.IsOpen() && c.attempts.Add(1)%probeInterval != 0 {
		return CourierProfile{}, &UpstreamError{err: errCircuitOpen}
	}

	profile, err := call()
	c.observe(err)
	return profile, err
}

func (c *BreakerClient) observe(err error) {
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.Warn("users circuit opened", "breaker", c.breaker.Name())
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("users circuit closed", "breaker", c.breaker.Name())
	}
}
