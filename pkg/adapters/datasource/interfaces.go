// Package datasource defines the dialect driver contract and the engine
// cache that owns live connection pools. Dialect implementations live in
// subpackages and register themselves at init time.
package datasource

import (
	"context"
	"time"

	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
)

// Qualifiers narrow an introspection request to a database and schema.
// Empty fields mean "use the connection's default".
type Qualifiers struct {
	Database            string
	Schema              string
	IncludeSystemTables bool
}

// ColumnMetadata describes a single column of a table.
type ColumnMetadata struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Description     string  `json:"description"`
	IsNullable      bool    `json:"is_nullable"`
	IsPrimaryKey    bool    `json:"is_primary_key"`
	DefaultValue    *string `json:"default_value"`
	OrdinalPosition int     `json:"ordinal_position"`
}

// TableMetadata describes a table and its columns. RowCount and SizeBytes
// are nil when the dialect cannot provide them cheaply.
type TableMetadata struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Columns     []ColumnMetadata `json:"columns"`
	RowCount    *int64           `json:"row_count,omitempty"`
	SizeBytes   *int64           `json:"size_bytes,omitempty"`
}

// CatalogMetadata is the full introspection result for one database.
type CatalogMetadata struct {
	SourceType string          `json:"source_type"`
	Tables     []TableMetadata `json:"tables"`
}

// SourceTypeSQL is the only source type this service produces.
const SourceTypeSQL = "SQL_DB"

// TableStatistics carries size and shape information for one table.
type TableStatistics struct {
	TableName   string `json:"table_name"`
	RowCount    *int64 `json:"row_count"`
	SizeBytes   *int64 `json:"size_bytes"`
	ColumnCount int    `json:"column_count"`
}

// QueryResult holds the outcome of running a read-only query.
type QueryResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// Introspector extracts catalog metadata from a live pool. Implementations
// are stateless; the pool argument carries the connection.
type Introspector interface {
	// Catalog returns metadata for every table visible under the qualifiers.
	Catalog(ctx context.Context, pool PoolConnector, q Qualifiers) (*CatalogMetadata, error)

	// Tables returns metadata for the named tables only. Unknown names are
	// skipped rather than failing the whole call.
	Tables(ctx context.Context, pool PoolConnector, q Qualifiers, names []string) ([]TableMetadata, error)

	// TableNames returns just the table names visible under the qualifiers.
	TableNames(ctx context.Context, pool PoolConnector, q Qualifiers) ([]string, error)

	// Statistics returns size statistics for the named tables, or for all
	// tables when names is empty.
	Statistics(ctx context.Context, pool PoolConnector, q Qualifiers, names []string) ([]TableStatistics, error)
}

// Runner executes an already-validated read-only query against a pool.
type Runner interface {
	Run(ctx context.Context, pool PoolConnector, query string) (*QueryResult, error)
}

// Driver bundles everything the engine cache needs to serve one dialect.
type Driver struct {
	Dialect      connstring.Dialect
	Open         func(ctx context.Context, connString string, cfg PoolConfig) (PoolConnector, error)
	Introspector Introspector
	Runner       Runner
}

// PoolConfig holds pool sizing and timeout settings shared by all dialects.
// Not every dialect honors every field; each Open maps what its driver supports.
type PoolConfig struct {
	Size           int
	MaxOverflow    int
	Timeout        time.Duration
	Recycle        time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultPoolConfig returns the pool settings used when no configuration
// is supplied.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Size:           5,
		MaxOverflow:    10,
		Timeout:        30 * time.Second,
		Recycle:        time.Hour,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// MaxConns returns the effective connection ceiling for the pool.
func (c PoolConfig) MaxConns() int {
	return c.Size + c.MaxOverflow
}
