package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

// DefaultSchema is used when a request does not name a schema.
const DefaultSchema = "dbo"

// Introspector extracts catalog metadata from the sys catalog views.
// Descriptions come from MS_Description extended properties, which is where
// SQL Server stores table and column comments.
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

// Tables returns metadata for the named tables, or all tables when names
// is empty. The name filter is applied in Go since go-mssqldb named
// parameters do not compose with variable-length IN lists.
func (in *Introspector) Tables(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers, names []string) ([]datasource.TableMetadata, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}
	schema := in.schemaOf(q)

	rows, err := in.fetchTables(ctx, db, schema)
	if err != nil {
		return nil, err
	}
	rows = filterByName(rows, names)

	tables := make([]datasource.TableMetadata, 0, len(rows))
	for _, tr := range rows {
		columns, err := in.fetchColumns(ctx, db, schema, tr.name)
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
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}

	rows, err := in.fetchTables(ctx, db, in.schemaOf(q))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, tr := range rows {
		names = append(names, tr.name)
	}
	return names, nil
}

// Statistics returns row counts and reserved sizes from
// sys.dm_db_partition_stats.
func (in *Introspector) Statistics(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers, names []string) ([]datasource.TableStatistics, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}
	schema := in.schemaOf(q)

	const query = `
	SET NOCOUNT ON;
	SELECT
	    t.name,
	    SUM(ps.row_count),
	    SUM(ps.reserved_page_count) * 8192,
	    (SELECT COUNT(*) FROM sys.columns c WHERE c.object_id = t.object_id)
	FROM sys.tables t
	INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
	INNER JOIN sys.dm_db_partition_stats ps
	    ON ps.object_id = t.object_id AND ps.index_id IN (0, 1)
	WHERE t.is_ms_shipped = 0 AND s.name = @schema
	GROUP BY t.name, t.object_id
	ORDER BY t.name
	`

	rows, err := db.QueryContext(ctx, query, sql.Named("schema", schema))
	if err != nil {
		return nil, fmt.Errorf("query table statistics: %w", err)
	}
	defer rows.Close()

	nameSet := toSet(names)
	var stats []datasource.TableStatistics
	for rows.Next() {
		var s datasource.TableStatistics
		if err := rows.Scan(&s.TableName, &s.RowCount, &s.SizeBytes, &s.ColumnCount); err != nil {
			return nil, fmt.Errorf("scan table statistics: %w", err)
		}
		if len(nameSet) > 0 {
			if _, ok := nameSet[s.TableName]; !ok {
				continue
			}
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table statistics: %w", err)
	}
	return stats, nil
}

func (in *Introspector) fetchTables(ctx context.Context, db *sql.DB, schema string) ([]tableRow, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    t.name,
	    COALESCE(CAST(ep.value AS NVARCHAR(MAX)), ''),
	    SUM(p.rows),
	    SUM(a.total_pages) * 8192
	FROM sys.tables t
	INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
	INNER JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
	LEFT JOIN sys.allocation_units a ON a.container_id = p.partition_id
	LEFT JOIN sys.extended_properties ep
	    ON ep.major_id = t.object_id AND ep.minor_id = 0 AND ep.name = 'MS_Description'
	WHERE t.is_ms_shipped = 0 AND s.name = @schema
	GROUP BY t.name, CAST(ep.value AS NVARCHAR(MAX))
	ORDER BY t.name
	`

	rows, err := db.QueryContext(ctx, query, sql.Named("schema", schema))
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

func (in *Introspector) fetchColumns(ctx context.Context, db *sql.DB, schema, table string) ([]datasource.ColumnMetadata, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    c.name,
	    tp.name,
	    COALESCE(CAST(ep.value AS NVARCHAR(MAX)), ''),
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END,
	    OBJECT_DEFINITION(c.default_object_id),
	    c.column_id
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN sys.extended_properties ep
	    ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.name = 'MS_Description'
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

	rows, err := db.QueryContext(ctx, query,
		sql.Named("schema", schema),
		sql.Named("table", table),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var c datasource.ColumnMetadata
		var isNullable, isPrimary int
		if err := rows.Scan(&c.Name, &c.Type, &c.Description, &isNullable, &isPrimary, &c.DefaultValue, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.IsNullable = isNullable == 1
		c.IsPrimaryKey = isPrimary == 1
		c.Description = datasource.DescribeColumn(c.Name, c.Type, c.Description)
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

func filterByName(rows []tableRow, names []string) []tableRow {
	if len(names) == 0 {
		return rows
	}
	nameSet := toSet(names)
	var out []tableRow
	for _, tr := range rows {
		if _, ok := nameSet[tr.name]; ok {
			out = append(out, tr)
		}
	}
	return out
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

var _ datasource.Introspector = (*Introspector)(nil)
