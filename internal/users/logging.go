package users

import (
	"context"
	"log/slog"
)

// LoggingClient logs every identity-service call and its outcome. It is
// composed around the transport client so the transport stays free of
// observability concerns.
type LoggingClient struct {
	next   Client
	logger *slog.Logger
}

func NewLoggingClient(next Client, logger *slog.Logger) *LoggingClient {
	return &LoggingClient{next: next, logger: logger}
}

func (c *LoggingClient) ResolveByID(ctx context.Context, id int64, credential string) (CourierProfile, error) {
	profile, err := c.next.ResolveByID(ctx, id, credential)
	if err != nil {
		c.logger.Error("resolve user by id failed", "user_id", id, "error", err)
		return profile, err
	}
	c.logger.Info("resolved user by id", "user_id", id, "role", profile.Role)
	return profile, nil
}

func (c *LoggingClient) ResolveByEmail(ctx context.Context, email string, credential string) (CourierProfile, error) {
	profile, err := c.next.ResolveByEmail(ctx, email, credential)
	if err != nil {
		c.logger.Error("resolve user by email failed", "email", email, "error", err)
		return profile, err
	}
	c.logger.Info("resolved user by email", "email", email, "role", profile.Role)
	return profile, nil
}
