package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a related page title is reused
const DefaultTTL = time.Hour

// ErrNotFound means a title is not cached
var ErrNotFound = errors.New("title not cached")

// Cache stores related page titles by page id
type Cache interface {
	Get(ctx context.Context, id string) (string, error)
	Set(ctx context.Context, id, title string) error
}

type entry struct {
	title   string
	expires time.Time
}

// MemoryCache keeps titles for the lifetime of a warm function instance
type MemoryCache struct {
	mu         sync.RWMutex
	data       map[string]entry
	maxEntries int
	ttl        time.Duration
}

// NewMemoryCache constructs a MemoryCache limited to the provided number of entries
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{data: make(map[string]entry), maxEntries: maxEntries, ttl: ttl}
}

// Get returns a cached title if present and not expired
func (c *MemoryCache) Get(_ context.Context, id string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[id]
	if !ok || time.Now().After(e.expires) {
		return "", ErrNotFound
	}
	return e.title, nil
}

// Set stores a title, evicting an arbitrary entry when full
func (c *MemoryCache) Set(_ context.Context, id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[id]; !ok && len(c.data) >= c.maxEntries {
		for k := range c.data {
			delete(c.data, k)
			break
		}
	}
	c.data[id] = entry{title: title, expires: time.Now().Add(c.ttl)}
	return nil
}

// RedisClient is the subset of the go-redis client the cache uses
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

var (
	_ RedisClient = (*redis.Client)(nil)
	_ Cache       = (*RedisCache)(nil)
	_ Cache       = (*MemoryCache)(nil)
)

// RedisCache shares titles between function instances
type RedisCache struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache returns a RedisCache writing keys under prefix
func NewRedisCache(client RedisClient, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns a cached title
func (rc *RedisCache) Get(ctx context.Context, id string) (string, error) {
	v, err := rc.client.Get(ctx, rc.prefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("error accessing redis: %w", err)
	}
	return v, nil
}

// Set stores a title with the cache TTL
func (rc *RedisCache) Set(ctx context.Context, id, title string) error {
	err := rc.client.Set(ctx, rc.prefix+id, title, rc.ttl).Err()
	if err != nil {
		return fmt.Errorf("error accessing redis: %w", err)
	}
	return nil
}
