package docsystem

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"deptdocs/internal/config"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
)

// DefaultSearchCacheEntries bounds the in-process cache
const DefaultSearchCacheEntries = 1024

type cacheEntry struct {
	key     string
	payload []byte
	expires time.Time
}

// MemorySearchCache is an in-process TTL cache with LRU eviction. Entries
// are never updated in place; they are replaced or expire.
type MemorySearchCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

var _ docsysSvc.SearchCache = (*MemorySearchCache)(nil)

// NewMemorySearchCache creates an in-process cache. now may be nil.
func NewMemorySearchCache(ttl time.Duration, maxEntries int, now func() time.Time) *MemorySearchCache {
	if maxEntries <= 0 {
		maxEntries = DefaultSearchCacheEntries
	}
	if now == nil {
		now = time.Now
	}
	return &MemorySearchCache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
	}
}

func (c *MemorySearchCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*cacheEntry)
	if !c.now().Before(entry.expires) {
		c.lru.Remove(el)
		delete(c.entries, key)
		return nil, false, nil
	}
	c.lru.MoveToFront(el)
	return entry.payload, true, nil
}

func (c *MemorySearchCache) Set(_ context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{
		key:     key,
		payload: append([]byte(nil), payload...),
		expires: c.now().Add(c.ttl),
	}
	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.lru.MoveToFront(el)
		return nil
	}
	c.entries[key] = c.lru.PushFront(entry)
	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return nil
}

// Len reports the number of entries, expired ones included
func (c *MemorySearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// RedisSearchCache stores payloads in redis with a fixed expiry
type RedisSearchCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ docsysSvc.SearchCache = (*RedisSearchCache)(nil)

// NewRedisSearchCache connects to redis. Keys are namespaced by prefix.
func NewRedisSearchCache(cfg config.RedisConfig, ttl time.Duration, prefix string, logger *slog.Logger) *RedisSearchCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &RedisSearchCache{rdb: rdb, ttl: ttl, prefix: prefix, logger: logger}
}

// Ping checks the connection
func (c *RedisSearchCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client
func (c *RedisSearchCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, payload []byte) error {
	if err := c.rdb.Set(ctx, c.prefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	c.logger.Debug("search cache stored", "key", key, "bytes", len(payload), "ttl", c.ttl)
	return nil
}
