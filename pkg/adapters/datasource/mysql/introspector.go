package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

// Introspector extracts catalog metadata from INFORMATION_SCHEMA.
// MySQL has no separate schema layer, so the database qualifier is the
// schema; when neither is given the connection's default database is used.
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

func (in *Introspector) databaseOf(ctx context.Context, db *sql.DB, q datasource.Qualifiers) (string, error) {
	if q.Database != "" {
		return q.Database, nil
	}
	if q.Schema != "" {
		return q.Schema, nil
	}

	var name sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
		return "", fmt.Errorf("resolve default database: %w", err)
	}
	if !name.Valid || name.String == "" {
		return "", fmt.Errorf("no database selected; name one in the connection string or request")
	}
	return name.String, nil
}

// Catalog returns metadata for every table in the database.
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
// is empty.
func (in *Introspector) Tables(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers, names []string) ([]datasource.TableMetadata, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}
	database, err := in.databaseOf(ctx, db, q)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			TABLE_NAME,
			COALESCE(TABLE_COMMENT, ''),
			TABLE_ROWS,
			DATA_LENGTH + INDEX_LENGTH
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
	`
	args := []any{database}
	query, args = appendNameFilter(query, args, "TABLE_NAME", names)
	query += " ORDER BY TABLE_NAME"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableMetadata
	for rows.Next() {
		var t datasource.TableMetadata
		if err := rows.Scan(&t.Name, &t.Description, &t.RowCount, &t.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	out := make([]datasource.TableMetadata, 0, len(tables))
	for i := range tables {
		columns, err := in.fetchColumns(ctx, db, database, tables[i].Name)
		if err != nil {
			// A single broken table must not hide the rest of the catalog.
			in.log().Warn("skipping table during introspection",
				zap.String("table", tables[i].Name),
				zap.Error(err))
			continue
		}
		tables[i].Columns = columns
		tables[i].Description = datasource.DescribeTable(tables[i].Name, tables[i].Description)
		out = append(out, tables[i])
	}
	return out, nil
}

// TableNames returns just the table names in the database.
func (in *Introspector) TableNames(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers) ([]string, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}
	database, err := in.databaseOf(ctx, db, q)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`, database)
	if err != nil {
		return nil, fmt.Errorf("query table names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	return names, nil
}

// Statistics returns row count and size estimates from INFORMATION_SCHEMA.
// TABLE_ROWS is an estimate for InnoDB, which matches how the other
// dialects report counts.
func (in *Introspector) Statistics(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers, names []string) ([]datasource.TableStatistics, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}
	database, err := in.databaseOf(ctx, db, q)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			t.TABLE_NAME,
			t.TABLE_ROWS,
			t.DATA_LENGTH + t.INDEX_LENGTH,
			(SELECT COUNT(*) FROM INFORMATION_SCHEMA.COLUMNS c
			 WHERE c.TABLE_SCHEMA = t.TABLE_SCHEMA AND c.TABLE_NAME = t.TABLE_NAME)
		FROM INFORMATION_SCHEMA.TABLES t
		WHERE t.TABLE_SCHEMA = ? AND t.TABLE_TYPE = 'BASE TABLE'
	`
	args := []any{database}
	query, args = appendNameFilter(query, args, "t.TABLE_NAME", names)
	query += " ORDER BY t.TABLE_NAME"

	rows, err := db.QueryContext(ctx, query, args...)
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

func (in *Introspector) fetchColumns(ctx context.Context, db *sql.DB, database, table string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT
			COLUMN_NAME,
			COLUMN_TYPE,
			COALESCE(COLUMN_COMMENT, ''),
			IS_NULLABLE = 'YES',
			COLUMN_KEY = 'PRI',
			COLUMN_DEFAULT,
			ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, database, table)
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

// appendNameFilter adds an IN clause with one placeholder per name.
func appendNameFilter(query string, args []any, column string, names []string) (string, []any) {
	if len(names) == 0 {
		return query, args
	}
	placeholders := make([]string, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		args = append(args, name)
	}
	return query + fmt.Sprintf(" AND %s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

var _ datasource.Introspector = (*Introspector)(nil)
