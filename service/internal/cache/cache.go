// Package cache provides a distributed backing store for signature
// generation results, mirroring engine.SignatureCache's key shape so a
// multi-replica deployment can share cache hits across instances. Built
// on redis/go-redis/v9 per the teacher's caching stack.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached signature computation is trusted
// before expiring — generous because a cache key changes whenever the
// player's domains, signals, absent set or called set change (the
// per-player value cap is not part of it), and session IDs keep keys
// from being reused across unrelated sessions.
const DefaultTTL = 10 * time.Minute

// SignatureCache is a redis-backed cache keyed by session ID plus the
// engine.SignatureCacheKey string.
type SignatureCache struct {
	client *redis.Client
}

// New connects to a redis instance at addr with the given password (empty
// for none).
func New(addr, password string) *SignatureCache {
	return &SignatureCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})}
}

// Ping verifies connectivity at startup.
func (c *SignatureCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *SignatureCache) Close() error { return c.client.Close() }

func redisKey(sessionID, sigKey string) string {
	return fmt.Sprintf("bombbuster:sig:%s:%s", sessionID, sigKey)
}

// Get fetches and JSON-decodes a cached value into dst, reporting whether
// the key was present.
func (c *SignatureCache) Get(ctx context.Context, sessionID, sigKey string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, redisKey(sessionID, sigKey)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache: decoding cached signature set: %w", err)
	}
	return true, nil
}

// Put JSON-encodes value and stores it under the session+signature key
// with DefaultTTL.
func (c *SignatureCache) Put(ctx context.Context, sessionID, sigKey string, value any) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encoding signature set: %w", err)
	}
	return c.client.Set(ctx, redisKey(sessionID, sigKey), buf, DefaultTTL).Err()
}

// InvalidateSession drops every cached entry for a session. Nothing in
// the service calls it; entries otherwise expire after DefaultTTL.
func (c *SignatureCache) InvalidateSession(ctx context.Context, sessionID string) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("bombbuster:sig:%s:*", sessionID), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
