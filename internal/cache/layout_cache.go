// Package cache shares packed layouts between render service replicas.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dlovans/formrt/pkg/formrt"
)

const keyPrefix = "formrt:layout:"

// RedisLayoutCache stores packed layouts in Redis. Redis failures are logged
// and treated as misses: the packer simply recomputes.
type RedisLayoutCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisLayoutCache creates a Redis-backed layout cache.
func NewRedisLayoutCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisLayoutCache {
	return &RedisLayoutCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (c *RedisLayoutCache) key(layoutKey string) string {
	return keyPrefix + layoutKey
}

// WithContext binds the cache to a request context so it satisfies formrt.LayoutCache.
func (c *RedisLayoutCache) WithContext(ctx context.Context) formrt.LayoutCache {
	return &boundCache{ctx: ctx, cache: c}
}

func (c *RedisLayoutCache) Get(ctx context.Context, layoutKey string) (formrt.Layout, bool) {
	data, err := c.client.Get(ctx, c.key(layoutKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return formrt.Layout{}, false
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("layout cache get failed")
		return formrt.Layout{}, false
	}

	var layout formrt.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		c.log.Warn().Err(err).Str("key", layoutKey).Msg("discarding undecodable cached layout")
		return formrt.Layout{}, false
	}
	return layout, true
}

func (c *RedisLayoutCache) Put(ctx context.Context, layoutKey string, layout formrt.Layout) {
	data, err := json.Marshal(layout)
	if err != nil {
		c.log.Warn().Err(err).Msg("layout cache encode failed")
		return
	}
	if err := c.client.Set(ctx, c.key(layoutKey), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("layout cache set failed")
	}
}

// Reset deletes every cached layout.
func (c *RedisLayoutCache) Reset(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
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

type boundCache struct {
	ctx   context.Context
	cache *RedisLayoutCache
}

func (b *boundCache) Get(key string) (formrt.Layout, bool) {
	return b.cache.Get(b.ctx, key)
}

func (b *boundCache) Put(key string, layout formrt.Layout) {
	b.cache.Put(b.ctx, key, layout)
}

func (b *boundCache) Reset() {
	if err := b.cache.Reset(b.ctx); err != nil {
		b.cache.log.Warn().Err(err).Msg("layout cache reset failed")
	}
}
