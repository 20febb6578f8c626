package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReferenceCache stores read-only reference data (payment methods, activities,
// promos) shared by all visitors.
type ReferenceCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewReferenceCache(client *redis.Client, baseTTL time.Duration) *ReferenceCache {
	return &ReferenceCache{client: client, baseTTL: baseTTL}
}

func (c *ReferenceCache) Get(ctx context.Context, key string, out any) error {
	data, err := c.client.Get(ctx, referenceKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *ReferenceCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := c.client.Set(ctx, referenceKey(key), data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func referenceKey(key string) string {
	return fmt.Sprintf("ref:%s", key)
}
