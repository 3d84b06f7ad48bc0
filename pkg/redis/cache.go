package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache provides typed read-through caching for query responses. This
// is a latency cache only; durable artifacts live in PostgreSQL.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper.
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value. A miss (or disabled Redis) returns
// found=false without error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// Invalidate removes a cached value. Called after a refresh replaces
// the computed data set.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Del(ctx, fullKey).Err()
}

// QueryTTL bounds how long query responses may be served from cache.
// Refreshes invalidate explicitly, so this is only a backstop.
const QueryTTL = 10 * time.Minute

// Cache key helpers.

// RankingKey caches the combined ranking listing.
func RankingKey() string { return "screen:ranking" }

// AllRowsKey caches the unfiltered indicator listing.
func AllRowsKey() string { return "indicators:all" }
