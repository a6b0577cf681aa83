package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"agile-live/internal/model"
)

// Cache stores unit-rate responses keyed by GenerateCacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (*model.UnitRatesResponse, bool, error)
	Set(ctx context.Context, key string, resp *model.UnitRatesResponse) error
}

type cacheEntry struct {
	response  *model.UnitRatesResponse
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemoryCache creates a cache and starts a janitor that drops expired
// entries every sweep interval. Call Close to stop it.
func NewMemoryCache(ttl, sweep time.Duration) *MemoryCache {
	c := &MemoryCache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if sweep > 0 {
		go c.cleanup(sweep)
	}
	return c
}

// Get retrieves a cached response if available and not expired
func (c *MemoryCache) Get(_ context.Context, key string) (*model.UnitRatesResponse, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.response, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, resp *model.UnitRatesResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &cacheEntry{
		response:  resp,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*cacheEntry)
}

func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
		}
	}
}

// cleanup periodically removes expired entries
func (c *MemoryCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// RedisCache keeps responses in Redis as JSON with a TTL, so several service
// replicas share one upstream fetch per slot.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects and pings the server; callers fall back to the memory
// cache when this fails.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisCache{client: client, prefix: "agile:rates:", ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*model.UnitRatesResponse, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var resp model.UnitRatesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return &resp, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *model.UnitRatesResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GenerateCacheKey creates a cache key from the query and the UTC day of at.
func GenerateCacheKey(params QueryUnitRatesParams, at time.Time) string {
	keyStr := fmt.Sprintf("%s:%s:%s:%s:%s",
		params.Tariff.ProductCode,
		params.Tariff.Code(),
		fmtKeyTime(params.PeriodFrom),
		fmtKeyTime(params.PeriodTo),
		at.UTC().Format("2006-01-02"),
	)

	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

func fmtKeyTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
