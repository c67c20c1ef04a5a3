package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

// Introspector extracts catalog metadata from sqlite_master and the
// table_info pragma. SQLite has no schemas, comments, or cheap size
// estimates, so descriptions are synthesized and sizes nil; row counts
// come from COUNT(*), tolerating failure on individual tables.
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

	all, err := in.TableNames(ctx, pool, q)
	if err != nil {
		return nil, err
	}
	selected := filterNames(all, names)

	tables := make([]datasource.TableMetadata, 0, len(selected))
	for _, name := range selected {
		columns, err := in.fetchColumns(ctx, db, name)
		if err != nil {
			// A single broken table must not hide the rest of the catalog.
			in.log().Warn("skipping table during introspection",
				zap.String("table", name),
				zap.Error(err))
			continue
		}
		t := datasource.TableMetadata{
			Name:        name,
			Description: datasource.DescribeTable(name, ""),
			Columns:     columns,
		}
		if count, err := in.countRows(ctx, db, name); err == nil {
			t.RowCount = &count
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// TableNames returns just the table names. System tables are the sqlite_*
// family and are excluded unless requested.
func (in *Introspector) TableNames(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers) ([]string, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}

	query := `SELECT name FROM sqlite_master WHERE type = 'table'`
	if !q.IncludeSystemTables {
		query += ` AND name NOT LIKE 'sqlite_%'`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
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

// Statistics returns row and column counts for the named tables, or for
// all tables when names is empty.
func (in *Introspector) Statistics(ctx context.Context, pool datasource.PoolConnector, q datasource.Qualifiers, names []string) ([]datasource.TableStatistics, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}

	all, err := in.TableNames(ctx, pool, q)
	if err != nil {
		return nil, err
	}
	selected := filterNames(all, names)

	stats := make([]datasource.TableStatistics, 0, len(selected))
	for _, name := range selected {
		columns, err := in.fetchColumns(ctx, db, name)
		if err != nil {
			in.log().Warn("skipping table during statistics scan",
				zap.String("table", name),
				zap.Error(err))
			continue
		}
		s := datasource.TableStatistics{
			TableName:   name,
			ColumnCount: len(columns),
		}
		if count, err := in.countRows(ctx, db, name); err == nil {
			s.RowCount = &count
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func (in *Introspector) fetchColumns(ctx context.Context, db *sql.DB, table string) ([]datasource.ColumnMetadata, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("table_info for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var (
			cid        int
			name       string
			typ        string
			notNull    int
			defaultVal *string
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		columns = append(columns, datasource.ColumnMetadata{
			Name:            name,
			Type:            typ,
			Description:     datasource.DescribeColumn(name, typ, ""),
			IsNullable:      notNull == 0,
			IsPrimaryKey:    pk > 0,
			DefaultValue:    defaultVal,
			OrdinalPosition: cid + 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info rows: %w", err)
	}
	return columns, nil
}

func (in *Introspector) countRows(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))
	err := db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// quoteIdentifier double-quotes an identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func filterNames(all, names []string) []string {
	if len(names) == 0 {
		return all
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	var out []string
	for _, n := range all {
		if _, ok := set[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

var _ datasource.Introspector = (*Introspector)(nil)
