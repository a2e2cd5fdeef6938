package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyByID    = "usuarios:id:%d"
	cacheKeyByEmail = "usuarios:email:%s"
)

// ProfileCacheTTL bounds how long a resolved profile may be served without
// re-verification. Role changes upstream become visible after at most this
// long.
const ProfileCacheTTL = 5 * time.Minute

// CachingClient keeps recently resolved profiles in Redis. Cache failures are
// never fatal: reads fall through to the wrapped client and write failures
// are only logged.
type CachingClient struct {
	next   Client
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewCachingClient(next Client, client *redis.Client, logger *slog.Logger) *CachingClient {
	return &CachingClient{next: next, client: client, logger: logger, ttl: ProfileCacheTTL}
}

func (c *CachingClient) ResolveByID(ctx context.Context, id int64, credential string) (CourierProfile, error) {
	key := fmt.Sprintf(cacheKeyByID, id)
	if profile, ok := c.lookup(ctx, key); ok {
		return profile, nil
	}
	profile, err := c.next.ResolveByID(ctx, id, credential)
	if err != nil {
		return profile, err
	}
	c.save(ctx, key, profile)
	return profile, nil
}

func (c *CachingClient) ResolveByEmail(ctx context.Context, email string, credential string) (CourierProfile, error) {
	key := fmt.Sprintf(cacheKeyByEmail, email)
	if profile, ok := c.lookup(ctx, key); ok {
		return profile, nil
	}
	profile, err := c.next.ResolveByEmail(ctx, email, credential)
	if err != nil {
		return profile, err
	}
	c.save(ctx, key, profile)
	return profile, nil
}

func (c *CachingClient) lookup(ctx context.Context, key string) (CourierProfile, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("profile cache read failed", "key", key, "error", err)
		}
		return CourierProfile{}, false
	}
	var profile CourierProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		c.logger.Warn("profile cache entry corrupt", "key", key, "error", err)
		return CourierProfile{}, false
	}
	return profile, true
}

func (c *CachingClient) save(ctx context.Context, key string, profile CourierProfile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write failed", "key", key, "error", err)
	}
}
