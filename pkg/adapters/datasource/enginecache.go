package datasource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/apperrors"
	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
	"github.com/nehasindhwani0110/k-gai/pkg/logging"
	"github.com/nehasindhwani0110/k-gai/pkg/retry"
)

// DefaultEngineTTL is how long a cached pool handle stays valid, measured
// from creation rather than last use.
const DefaultEngineTTL = time.Hour

// CacheKey derives a stable cache key from its parts. Parts are joined with
// a separator that cannot appear ambiguously, then hashed so credentials
// never appear in keys, logs, or stats.
func CacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// EngineCache owns every live connection pool in the process, keyed by
// normalized connection string. Two requests with different spellings of
// the same endpoint share one pool.
//
// Entries expire a fixed interval after creation. Expired entries are
// evicted lazily on the next Acquire for their key, or in bulk via
// EvictExpired. A cached pool is pinged before reuse and silently rebuilt
// when the ping fails, so callers never receive a dead handle.
type EngineCache struct {
	mu       sync.RWMutex
	entries  map[string]*engineEntry
	registry *Registry
	poolCfg  PoolConfig
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type engineEntry struct {
	pool      PoolConnector
	driver    *Driver
	createdAt time.Time
}

// NewEngineCache creates an engine cache backed by the given registry.
func NewEngineCache(registry *Registry, poolCfg PoolConfig, ttl time.Duration, logger *zap.Logger) *EngineCache {
	if ttl <= 0 {
		ttl = DefaultEngineTTL
	}
	return &EngineCache{
		entries:  make(map[string]*engineEntry),
		registry: registry,
		poolCfg:  poolCfg,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the cache's time source. Intended for tests.
func (c *EngineCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Acquire returns a live pool and the driver serving its dialect for the
// given connection string, creating the pool if no valid cached one exists.
// Creation failures are returned to the caller and never cached.
func (c *EngineCache) Acquire(ctx context.Context, rawConnString string) (PoolConnector, *Driver, error) {
	normalized := connstring.Normalize(rawConnString)
	key := CacheKey("engine", normalized)

	c.mu.RLock()
	entry, exists := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	if exists {
		if now.Sub(entry.createdAt) >= c.ttl {
			c.remove(key, entry)
		} else {
			healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := retry.Do(healthCtx, retry.DefaultConfig(), func() error {
				return entry.pool.Ping(healthCtx)
			})
			cancel()
			if err == nil {
				return entry.pool, entry.driver, nil
			}
			c.logger.Warn("cached pool unhealthy, recreating",
				zap.String("key", key),
				zap.String("type", entry.pool.GetType()),
				zap.String("error", logging.SanitizeError(err)),
			)
			c.remove(key, entry)
		}
	}

	return c.create(ctx, key, normalized)
}

// create builds a new pool under the write lock, double-checking for a
// concurrent creation first.
func (c *EngineCache) create(ctx context.Context, key, connString string) (PoolConnector, *Driver, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists && c.now().Sub(entry.createdAt) < c.ttl {
		return entry.pool, entry.driver, nil
	}

	dialect := connstring.DialectFor(connString)
	driver, err := c.registry.Resolve(dialect)
	if err != nil {
		return nil, nil, err
	}

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (PoolConnector, error) {
		return driver.Open(ctx, connString, c.poolCfg)
	})
	if err != nil {
		c.logger.Error("failed to open pool after retries",
			zap.String("key", key),
			zap.String("dialect", string(dialect)),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, nil, fmt.Errorf("%w: opening %s pool: %v", apperrors.ErrConnection, dialect, err)
	}

	c.entries[key] = &engineEntry{
		pool:      pool,
		driver:    driver,
		createdAt: c.now(),
	}

	c.logger.Info("created connection pool",
		zap.String("key", key),
		zap.String("dialect", string(dialect)),
		zap.Int("cached_pools", len(c.entries)),
	)

	return pool, driver, nil
}

// remove evicts one entry if it is still the cached value for the key, and
// closes its pool exactly once.
func (c *EngineCache) remove(key string, entry *engineEntry) {
	c.mu.Lock()
	current, exists := c.entries[key]
	if exists && current == entry {
		delete(c.entries, key)
	} else {
		// Someone else already evicted or replaced it.
		entry = nil
	}
	c.mu.Unlock()

	if entry != nil {
		if err := entry.pool.Close(); err != nil {
			c.logger.Warn("error closing evicted pool",
				zap.String("key", key),
				zap.String("error", logging.SanitizeError(err)),
			)
		}
	}
}

// EvictExpired closes and removes every entry past its TTL, returning the
// number evicted.
func (c *EngineCache) EvictExpired() int {
	c.mu.Lock()
	now := c.now()
	var expired []*engineEntry
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) >= c.ttl {
			expired = append(expired, entry)
			delete(c.entries, key)
		}
	}
	remaining := len(c.entries)
	c.mu.Unlock()

	for _, entry := range expired {
		_ = entry.pool.Close()
	}

	if len(expired) > 0 {
		c.logger.Info("evicted expired pools",
			zap.Int("count", len(expired)),
			zap.Int("remaining", remaining),
		)
	}
	return len(expired)
}

// Clear closes and removes every cached pool, returning the number removed.
func (c *EngineCache) Clear() int {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*engineEntry)
	c.mu.Unlock()

	for _, entry := range entries {
		_ = entry.pool.Close()
	}

	c.logger.Info("cleared engine cache", zap.Int("count", len(entries)))
	return len(entries)
}

// Stats reports the cache's current shape. Safe to call concurrently.
func (c *EngineCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	stats := CacheStats{
		TotalPools:  len(c.entries),
		TTLSeconds:  int(c.ttl.Seconds()),
		PoolsByType: make(map[string]int),
	}
	for _, entry := range c.entries {
		stats.PoolsByType[entry.pool.GetType()]++
		age := int(now.Sub(entry.createdAt).Seconds())
		if age > stats.OldestPoolSeconds {
			stats.OldestPoolSeconds = age
		}
	}
	return stats
}

// CacheStats describes the engine cache state.
type CacheStats struct {
	TotalPools        int            `json:"total_pools"`
	TTLSeconds        int            `json:"ttl_seconds"`
	PoolsByType       map[string]int `json:"pools_by_type"`
	OldestPoolSeconds int            `json:"oldest_pool_seconds"`
}
