package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedKeyPrefix = "revoked_token:"

// RedisCache is the TokenCache backed by Redis, so a revoked session
// stays revoked across every instance and restart.
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// Already expired, nothing to remember.
		return nil
	}
	return c.Client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

func (c *RedisCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := c.Client.Get(ctx, revokedKeyPrefix+jti).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
