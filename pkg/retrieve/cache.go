package retrieve

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
)

// Cache stores result sets by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]catalog.ItemID, bool, error)
	Set(ctx context.Context, key string, ids []catalog.ItemID) error
}

// CacheKey identifies a method's answer to a query.
func CacheKey(r Retriever, q benchgen.QuerySpec) string {
	return string(r.Method()) + "|" + q.String()
}

type cached struct {
	Retriever
	cache Cache
	log   logger.Logger
}

// Cached serves repeated queries from cache. Cache failures are logged and
// fall through to r.
func Cached(r Retriever, cache Cache, log logger.Logger) Retriever {
	return &cached{Retriever: r, cache: cache, log: logger.OrNop(log)}
}

func (c *cached) Retrieve(ctx context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error) {
	key := CacheKey(c.Retriever, q)
	ids, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache get failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	if ok {
		return ids, nil
	}

	ids, err = c.Retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, ids); err != nil {
		c.log.Warn("cache set failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return ids, nil
}

// LRUCache is an in-process, size-bounded cache with expiry.
type LRUCache struct {
	lru *expirable.LRU[string, []catalog.ItemID]
}

// NewLRUCache creates a cache holding up to size entries for ttl (0 = no expiry).
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, []catalog.ItemID](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) ([]catalog.ItemID, bool, error) {
	ids, ok := c.lru.Get(key)
	return ids, ok, nil
}

func (c *LRUCache) Set(_ context.Context, key string, ids []catalog.ItemID) error {
	c.lru.Add(key, ids)
	return nil
}

// Len returns the number of live entries.
func (c *LRUCache) Len() int { return c.lru.Len() }

// RedisCache shares result sets between runs through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache stores entries under prefix for ttl (0 = no expiry).
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "prodeval:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]catalog.ItemID, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []catalog.ItemID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, ids []catalog.ItemID) error {
	if ids == nil {
		ids = []catalog.ItemID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}
