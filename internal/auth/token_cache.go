package auth

import (
	"context"
	"sync"
	"time"
)

// TokenCache remembers revoked session tokens (by jti) until they would
// have expired anyway.
type TokenCache interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryCache is the in-process TokenCache used in tests and when no
// Redis is configured. Revocations do not survive a restart, which is
// acceptable because the tokens they cover are short-lived.
type MemoryCache struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{revoked: make(map[string]time.Time)}
}

func (c *MemoryCache) Revoke(_ context.Context, jti string, until time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = until
	return nil
}

func (c *MemoryCache) IsRevoked(_ context.Context, jti string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(c.revoked, jti)
		return false, nil
	}
	return true, nil
}
