package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/apperrors"
	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
)

// DefaultSchemaTTL is how long introspected catalog metadata stays cached.
// Schema changes rarely, but not never, so this is much shorter than the
// engine TTL.
const DefaultSchemaTTL = 5 * time.Minute

// CatalogRequest identifies the database to introspect and how.
type CatalogRequest struct {
	ConnectionString    string
	Database            string
	Schema              string
	IncludeSystemTables bool
	ForceRefresh        bool
}

// CatalogService serves schema metadata with a TTL cache in front of the
// per-dialect introspectors.
type CatalogService interface {
	// Introspect performs a fresh introspection, bypassing but refreshing
	// the schema cache.
	Introspect(ctx context.Context, req CatalogRequest) (*datasource.CatalogMetadata, error)

	// Catalog returns the full catalog, served from cache when fresh.
	Catalog(ctx context.Context, req CatalogRequest) (*datasource.CatalogMetadata, error)

	// Tables returns metadata for the named tables only.
	Tables(ctx context.Context, req CatalogRequest, names []string) ([]datasource.TableMetadata, error)

	// Statistics returns table size statistics. Statistics change with
	// every write, so they are never served from the schema cache.
	Statistics(ctx context.Context, req CatalogRequest, names []string) ([]datasource.TableStatistics, error)

	// ValidateTableExists reports whether the named table is present.
	ValidateTableExists(ctx context.Context, req CatalogRequest, tableName string) (bool, error)

	// ClearSchemaCache drops all cached catalog metadata and returns the
	// number of entries removed.
	ClearSchemaCache() int

	// ClearEngineCache closes and drops all cached connection pools and
	// returns the number removed.
	ClearEngineCache() int
}

type schemaEntry struct {
	catalog   *datasource.CatalogMetadata
	createdAt time.Time
}

type catalogService struct {
	engines *datasource.EngineCache
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string]*schemaEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewCatalogService creates a catalog service over the given engine cache.
func NewCatalogService(engines *datasource.EngineCache, schemaTTL time.Duration, logger *zap.Logger) CatalogService {
	if schemaTTL <= 0 {
		schemaTTL = DefaultSchemaTTL
	}
	return &catalogService{
		engines: engines,
		logger:  logger,
		cache:   make(map[string]*schemaEntry),
		ttl:     schemaTTL,
		now:     time.Now,
	}
}

// newCatalogServiceWithClock is the test constructor.
func newCatalogServiceWithClock(engines *datasource.EngineCache, schemaTTL time.Duration, logger *zap.Logger, now func() time.Time) *catalogService {
	svc := NewCatalogService(engines, schemaTTL, logger).(*catalogService)
	svc.now = now
	return svc
}

func (s *catalogService) cacheKey(req CatalogRequest) string {
	return datasource.CacheKey(
		"schema",
		connstring.Normalize(req.ConnectionString),
		"db:"+req.Database,
		"schema:"+req.Schema,
		fmt.Sprintf("system:%t", req.IncludeSystemTables),
	)
}

func (s *catalogService) qualifiers(req CatalogRequest) datasource.Qualifiers {
	return datasource.Qualifiers{
		Database:            req.Database,
		Schema:              req.Schema,
		IncludeSystemTables: req.IncludeSystemTables,
	}
}

func (s *catalogService) Introspect(ctx context.Context, req CatalogRequest) (*datasource.CatalogMetadata, error) {
	return s.introspect(ctx, req)
}

func (s *catalogService) Catalog(ctx context.Context, req CatalogRequest) (*datasource.CatalogMetadata, error) {
	if !req.ForceRefresh {
		if catalog := s.lookup(req); catalog != nil {
			return catalog, nil
		}
	}
	return s.introspect(ctx, req)
}

func (s *catalogService) Tables(ctx context.Context, req CatalogRequest, names []string) ([]datasource.TableMetadata, error) {
	catalog, err := s.Catalog(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return catalog.Tables, nil
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	tables := make([]datasource.TableMetadata, 0, len(names))
	for _, t := range catalog.Tables {
		if _, ok := set[t.Name]; ok {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

func (s *catalogService) Statistics(ctx context.Context, req CatalogRequest, names []string) ([]datasource.TableStatistics, error) {
	pool, driver, err := s.engines.Acquire(ctx, req.ConnectionString)
	if err != nil {
		return nil, err
	}

	stats, err := driver.Introspector.Statistics(ctx, pool, s.qualifiers(req), names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIntrospection, err)
	}
	return stats, nil
}

func (s *catalogService) ValidateTableExists(ctx context.Context, req CatalogRequest, tableName string) (bool, error) {
	catalog, err := s.Catalog(ctx, req)
	if err != nil {
		return false, err
	}
	for _, t := range catalog.Tables {
		if t.Name == tableName {
			return true, nil
		}
	}
	return false, nil
}

func (s *catalogService) ClearSchemaCache() int {
	s.mu.Lock()
	count := len(s.cache)
	s.cache = make(map[string]*schemaEntry)
	s.mu.Unlock()

	s.logger.Info("cleared schema cache", zap.Int("count", count))
	return count
}

func (s *catalogService) ClearEngineCache() int {
	return s.engines.Clear()
}

// lookup returns a cached catalog if present and fresh, evicting it when
// expired.
func (s *catalogService) lookup(req CatalogRequest) *datasource.CatalogMetadata {
	key := s.cacheKey(req)

	s.mu.RLock()
	entry, exists := s.cache[key]
	now := s.now()
	s.mu.RUnlock()

	if !exists {
		return nil
	}
	if now.Sub(entry.createdAt) >= s.ttl {
		s.mu.Lock()
		if current, ok := s.cache[key]; ok && current == entry {
			delete(s.cache, key)
		}
		s.mu.Unlock()
		return nil
	}
	return entry.catalog
}

// introspect runs a fresh introspection and refreshes the cache on success.
// Failures are returned and never cached.
func (s *catalogService) introspect(ctx context.Context, req CatalogRequest) (*datasource.CatalogMetadata, error) {
	pool, driver, err := s.engines.Acquire(ctx, req.ConnectionString)
	if err != nil {
		return nil, err
	}

	catalog, err := driver.Introspector.Catalog(ctx, pool, s.qualifiers(req))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIntrospection, err)
	}

	key := s.cacheKey(req)
	s.mu.Lock()
	s.cache[key] = &schemaEntry{catalog: catalog, createdAt: s.now()}
	size := len(s.cache)
	s.mu.Unlock()

	s.logger.Debug("cached catalog metadata",
		zap.String("key", key),
		zap.Int("tables", len(catalog.Tables)),
		zap.Int("cache_size", size),
	)
	return catalog, nil
}
