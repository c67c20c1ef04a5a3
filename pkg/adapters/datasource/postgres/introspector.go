package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

// DefaultSchema is used when a request does not name a schema.
const DefaultSchema = "public"

// Introspector extracts catalog metadata from PostgreSQL using
// information_schema joined with pg_catalog for comments and size estimates.
type Introspector struct {
	logger *zap.Logger
}

// SetLogger installs the logger used for per-table skip warnings.
func (in *Introspector) SetLogger(logger *zap.Logger) { in.logger = logger }

func (in *Introspector) log() *zap.Logger {
	if in.logger != nil {
		return in.logger
	}
	return zap.NewNop()
}

type tableRow struct {
	name        string
	description string
	rowCount    *int64
	sizeBytes   *int64
}

func (in *Introspector) schemaOf(q datasource.Qualifiers) string {
	if q.Schema != "" {
		return q.Schema
	}
	return DefaultSchema
}

// Catalog returns metadata for every table in the schema.
func (in *Introspector) Catalog(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers) (*datasource.CatalogMetadata, error) {
	tables, err := in.Tables(ctx, pool, q, nil)
	if err != nil {
		return nil, err
	}
	return &datasource.CatalogMetadata{
		SourceType: datasource.SourceTypeSQL,
		Tables:     tables,
	}, nil
}

// Tables returns metadata for the named tables, or for all tables when
// names is empty. Names that do not exist are skipped.
func (in *Introspector) Tables(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers, names []string) ([]datasource.TableMetadata, error) {
	p, err := pgxPool(pool)
	if err != nil {
		return nil, err
	}
	schema := in.schemaOf(q)

	rows, err := in.fetchTables(ctx, p, schema, q.IncludeSystemTables, names)
	if err != nil {
		return nil, err
	}

	tables := make([]datasource.TableMetadata, 0, len(rows))
	for _, tr := range rows {
		columns, err := in.fetchColumns(ctx, p, schema, tr.name)
		if err != nil {
			// A single broken table must not hide the rest of the catalog.
			in.log().Warn("skipping table during introspection",
				zap.String("table", tr.name),
				zap.Error(err))
			continue
		}
		tables = append(tables, datasource.TableMetadata{
			Name:        tr.name,
			Description: datasource.DescribeTable(tr.name, tr.description),
			Columns:     columns,
			RowCount:    tr.rowCount,
			SizeBytes:   tr.sizeBytes,
		})
	}
	return tables, nil
}

// TableNames returns just the table names in the schema.
func (in *Introspector) TableNames(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers) ([]string, error) {
	p, err := pgxPool(pool)
	if err != nil {
		return nil, err
	}

	rows, err := in.fetchTables(ctx, p, in.schemaOf(q), q.IncludeSystemTables, nil)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, tr := range rows {
		names = append(names, tr.name)
	}
	return names, nil
}

// Statistics returns row count and size estimates for the named tables, or
// for all tables when names is empty.
func (in *Introspector) Statistics(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers, names []string) ([]datasource.TableStatistics, error) {
	p, err := pgxPool(pool)
	if err != nil {
		return nil, err
	}
	schema := in.schemaOf(q)

	query := `
		SELECT
			c.relname,
			CASE WHEN c.reltuples >= 0 THEN c.reltuples::bigint ELSE NULL END,
			pg_total_relation_size(c.oid),
			(SELECT COUNT(*) FROM information_schema.columns col
			 WHERE col.table_schema = n.nspname AND col.table_name = c.relname)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r' AND n.nspname = $1
	`
	args := []any{schema}
	if len(names) > 0 {
		query += " AND c.relname = ANY($2)"
		args = append(args, names)
	}
	query += " ORDER BY c.relname"

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query table statistics: %w", err)
	}
	defer rows.Close()

	var stats []datasource.TableStatistics
	for rows.Next() {
		var s datasource.TableStatistics
		if err := rows.Scan(&s.TableName, &s.RowCount, &s.SizeBytes, &s.ColumnCount); err != nil {
			return nil, fmt.Errorf("scan table statistics: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table statistics: %w", err)
	}
	return stats, nil
}

func (in *Introspector) fetchTables(ctx context.Context, p pgxQuerier, schema string, includeSystem bool, names []string) ([]tableRow, error) {
	query := `
		SELECT
			t.table_name,
			COALESCE(obj_description(c.oid, 'pg_class'), '') AS description,
			CASE WHEN c.reltuples >= 0 THEN c.reltuples::bigint ELSE NULL END AS row_count,
			pg_total_relation_size(c.oid) AS size_bytes
		FROM information_schema.tables t
		LEFT JOIN pg_namespace n ON n.nspname = t.table_schema
		LEFT JOIN pg_class c ON c.relname = t.table_name AND c.relnamespace = n.oid
		WHERE t.table_type = 'BASE TABLE'
	`
	args := []any{schema}
	if includeSystem {
		query += " AND t.table_schema = $1"
	} else {
		query += ` AND t.table_schema = $1
			AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')`
	}
	if len(names) > 0 {
		query += " AND t.table_name = ANY($2)"
		args = append(args, names)
	}
	query += " ORDER BY t.table_name"

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var out []tableRow
	for rows.Next() {
		var tr tableRow
		if err := rows.Scan(&tr.name, &tr.description, &tr.rowCount, &tr.sizeBytes); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return out, nil
}

// fetchColumns uses pg_index for primary key detection, which correctly
// identifies keys even when created as unique indexes by an ORM.
func (in *Introspector) fetchColumns(ctx context.Context, p pgxQuerier, schema, table string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			COALESCE(col_description(pgc.oid, c.ordinal_position), '') AS description,
			c.is_nullable = 'YES' AS is_nullable,
			COALESCE(pk.is_pk, false) AS is_primary_key,
			c.column_default,
			c.ordinal_position
		FROM information_schema.columns c
		LEFT JOIN pg_namespace n ON n.nspname = c.table_schema
		LEFT JOIN pg_class pgc ON pgc.relname = c.table_name AND pgc.relnamespace = n.oid
		LEFT JOIN (
			SELECT a.attname AS column_name, true AS is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace pn ON pn.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND pn.nspname = $1
			  AND t.relname = $2
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := p.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var c datasource.ColumnMetadata
		if err := rows.Scan(&c.Name, &c.Type, &c.Description, &c.IsNullable, &c.IsPrimaryKey, &c.DefaultValue, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Description = datasource.DescribeColumn(c.Name, c.Type, c.Description)
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

var _ datasource.Introspector = (*Introspector)(nil)
