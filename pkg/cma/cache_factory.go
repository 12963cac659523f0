package cma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/cma-client/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeRedis represents Redis cache.
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrRedisConfigRequired  = errors.New("redis configuration required for redis cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
)

// CacheConfig configures cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType

	// TTL applied to entries stored by the client. Zero keeps entries until evicted.
	TTL time.Duration

	// Memory cache configuration
	Memory *MemoryCacheConfig

	// NATS KV cache configuration
	NATS *NATSKVConfig

	// Redis cache configuration
	Redis *RedisConfig

	// Local adds an in-process tier in front of a NATS or Redis backend.
	Local *MemoryCacheConfig
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		TTL:  constants.DefaultJobResultCacheTTL,
		Memory: &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		},
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		return NewMemoryCacheFromConfig(config.Memory), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		cache, err := NewNATSKVCache(config.NATS)
		if err != nil {
			return nil, err
		}

		return withLocalTier(config.Local, cache), nil

	case CacheTypeRedis:
		if config.Redis == nil {
			return nil, ErrRedisConfigRequired
		}

		return withLocalTier(config.Local, NewRedisCache(config.Redis)), nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// withLocalTier puts a memory cache in front of shared when local is set.
func withLocalTier(local *MemoryCacheConfig, shared Cache) Cache {
	if local == nil {
		return shared
	}

	return NewTieredCache(NewMemoryCacheFromConfig(local), shared)
}

// NewMemoryCacheFromConfig creates a memory cache from configuration.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) *MemoryCache {
	if config == nil {
		config = &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		}
	}

	return NewMemoryCache(config.MaxSize)
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// TieredCache keeps a process-local cache in front of a shared backend.
// Reads warm the local tier from the shared one.
type TieredCache struct {
	local  Cache
	shared Cache
}

// NewTieredCache layers local over shared.
func NewTieredCache(local, shared Cache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// Get returns the entry from the local tier, falling back to the shared tier.
func (c *TieredCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := c.local.Get(ctx, key)
	if err == nil {
		return entry, nil
	}

	entry, err = c.shared.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	_ = c.local.Set(ctx, key, entry)

	return entry, nil
}

// Set writes entry to both tiers. The local copy is kept even when the shared
// backend rejects the write.
func (c *TieredCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return errors.Join(c.shared.Set(ctx, key, entry), c.local.Set(ctx, key, entry))
}

// Delete removes key from both tiers.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.shared.Delete(ctx, key), c.local.Delete(ctx, key))
}

// Clear empties both tiers.
func (c *TieredCache) Clear(ctx context.Context) error {
	return errors.Join(c.shared.Clear(ctx), c.local.Clear(ctx))
}

// Has reports whether either tier holds key.
func (c *TieredCache) Has(ctx context.Context, key string) bool {
	return c.local.Has(ctx, key) || c.shared.Has(ctx, key)
}

// JobResultCache stores completed job results in a Cache. Job results never
// change once produced.
type JobResultCache struct {
	cache Cache
	ttl   time.Duration
}

// NewJobResultCache wraps cache. A nil cache disables caching.
func NewJobResultCache(cache Cache, ttl time.Duration) *JobResultCache {
	if cache == nil {
		cache = NewNoOpCache()
	}

	return &JobResultCache{cache: cache, ttl: ttl}
}

// Get returns the cached result for id.
func (c *JobResultCache) Get(ctx context.Context, id string) (*JobResult, bool) {
	entry, err := c.cache.Get(ctx, jobResultCacheKey(id))
	if err != nil {
		cacheLookupsTotal.WithLabelValues("miss").Inc()

		return nil, false
	}

	var result JobResult

	err = json.Unmarshal(entry.Data, &result)
	if err != nil {
		cacheLookupsTotal.WithLabelValues("miss").Inc()

		return nil, false
	}

	cacheLookupsTotal.WithLabelValues("hit").Inc()

	return &result, true
}

// Put stores result.
func (c *JobResultCache) Put(ctx context.Context, result *JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding job result: %w", err)
	}

	entry := &CacheEntry{Data: data}
	if c.ttl > 0 {
		entry.ExpiresAt = time.Now().Add(c.ttl)
	}

	return c.cache.Set(ctx, jobResultCacheKey(result.ID), entry)
}

func jobResultCacheKey(id string) string {
	return "job_results." + id
}
