// Package maven serves Artifact metadata with a Redis-backed read cache
// in front of the Resource Manager, grounded on queue/redis/queue.go's
// go-redis client construction (url parse + Ping on connect). It does not
// store or serve artifact bytes.
package maven

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forgebase/forge/manager"
	v1alpha1 "github.com/forgebase/forge/maven/v1alpha1"
)

// CacheConfig configures the Redis metadata cache.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Cache wraps a Resource Manager for Artifact with a read-through Redis
// cache, so a build server resolving the same coordinate repeatedly does
// not round-trip the document store every time.
type Cache struct {
	rm     *manager.RM[*v1alpha1.Artifact]
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to Redis and wraps rm.
func NewCache(ctx context.Context, cfg CacheConfig, rm *manager.RM[*v1alpha1.Artifact]) (*Cache, error) {
	redisURL := cfg.RedisURL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("maven: parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("maven: connecting to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rm: rm, client: client, ttl: ttl}, nil
}

func cacheKey(coordinate string) string { return "maven:artifact:" + coordinate }

// Get returns the Artifact for coordinate, preferring the Redis cache and
// falling back to (then populating from) the Resource Manager.
func (c *Cache) Get(ctx context.Context, coordinate string) (*v1alpha1.Artifact, error) {
	if cached, err := c.client.Get(ctx, cacheKey(coordinate)).Bytes(); err == nil {
		var artifact v1alpha1.Artifact
		if jsonErr := json.Unmarshal(cached, &artifact); jsonErr == nil {
			return &artifact, nil
		}
	}

	artifact, err := c.rm.Get(ctx, coordinate)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, nil
	}

	if body, err := json.Marshal(artifact); err == nil {
		c.client.Set(ctx, cacheKey(coordinate), body, c.ttl)
	}
	return artifact, nil
}

// Invalidate drops coordinate from the cache, called by the artifact
// reconciler whenever a Put or tombstone changes the underlying document.
func (c *Cache) Invalidate(ctx context.Context, coordinate string) {
	c.client.Del(ctx, cacheKey(coordinate))
}
