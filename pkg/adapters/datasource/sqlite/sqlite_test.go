package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

func TestDsnFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"sqlite://", ":memory:"},
		{"sqlite://:memory:", ":memory:"},
		{"sqlite:///app.db", "app.db"},
		{"sqlite:////data/app.db", "/data/app.db"},
	}
	for _, tt := range tests {
		if got := dsnFrom(tt.input); got != tt.want {
			t.Errorf("dsnFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func openTestDB(t *testing.T) datasource.PoolConnector {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	pool, err := Open(context.Background(), "sqlite:///"+path, datasource.DefaultPoolConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func seedStudents(t *testing.T, pool datasource.PoolConnector) {
	t.Helper()
	db, err := sqlDB(pool)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`CREATE TABLE students (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			cgpa REAL,
			enrolled_at TEXT DEFAULT 'unknown'
		)`,
		`INSERT INTO students (id, name, cgpa) VALUES
			(1, 'Asha', 8.2), (2, 'Ravi', 7.4), (3, 'Meena', 9.0)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestIntrospector_Catalog(t *testing.T) {
	pool := openTestDB(t)
	seedStudents(t, pool)

	in := &Introspector{}
	catalog, err := in.Catalog(context.Background(), pool, datasource.Qualifiers{})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	if catalog.SourceType != datasource.SourceTypeSQL {
		t.Errorf("source type = %q", catalog.SourceType)
	}
	if len(catalog.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(catalog.Tables))
	}

	table := catalog.Tables[0]
	if table.Name != "students" {
		t.Errorf("table name = %q", table.Name)
	}
	if table.RowCount == nil || *table.RowCount != 3 {
		t.Errorf("row count = %v, want 3", table.RowCount)
	}
	if len(table.Columns) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(table.Columns))
	}

	id := table.Columns[0]
	if id.Name != "id" || !id.IsPrimaryKey || id.IsNullable {
		t.Errorf("id column = %+v", id)
	}
	name := table.Columns[1]
	if name.Name != "name" || name.IsNullable {
		t.Errorf("name column = %+v", name)
	}
	enrolled := table.Columns[3]
	if enrolled.DefaultValue == nil {
		t.Error("expected default value for enrolled_at")
	}
	if enrolled.OrdinalPosition != 4 {
		t.Errorf("ordinal = %d, want 4", enrolled.OrdinalPosition)
	}

	// SQLite has no comments, so descriptions are synthesized.
	if table.Description != "Table students" {
		t.Errorf("table description = %q", table.Description)
	}
	if name.Description != "Column name of type TEXT" {
		t.Errorf("name column description = %q", name.Description)
	}
}

// TestIntrospector_SkipsBrokenTable plants a virtual table whose module is
// not available, so it lists in sqlite_master but errors on column
// inspection. The scan must log the skip and still return the healthy table.
func TestIntrospector_SkipsBrokenTable(t *testing.T) {
	pool := openTestDB(t)
	seedStudents(t, pool)

	db, err := sqlDB(pool)
	if err != nil {
		t.Fatal(err)
	}
	var version int
	if err := db.QueryRow("PRAGMA schema_version").Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	stmts := []string{
		`PRAGMA writable_schema = ON`,
		`INSERT INTO sqlite_master (type, name, tbl_name, rootpage, sql)
		 VALUES ('table', 'broken', 'broken', 0,
		         'CREATE VIRTUAL TABLE broken USING missing_module(x)')`,
		// Bump the schema cookie so every connection reloads and sees
		// the planted entry.
		fmt.Sprintf("PRAGMA schema_version = %d", version+1),
		`PRAGMA writable_schema = OFF`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Skipf("cannot plant broken schema entry: %v", err)
		}
	}

	core, logs := observer.New(zapcore.WarnLevel)
	in := &Introspector{}
	in.SetLogger(zap.New(core))

	catalog, err := in.Catalog(context.Background(), pool, datasource.Qualifiers{})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	if len(catalog.Tables) != 1 || catalog.Tables[0].Name != "students" {
		t.Fatalf("expected only the healthy table, got %+v", catalog.Tables)
	}

	entries := logs.FilterMessage("skipping table during introspection").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 skip warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["table"]; got != "broken" {
		t.Errorf("skip warning named table %v, want 'broken'", got)
	}
}

func TestIntrospector_TableNamesExcludesSystem(t *testing.T) {
	pool := openTestDB(t)
	seedStudents(t, pool)

	in := &Introspector{}
	names, err := in.TableNames(context.Background(), pool, datasource.Qualifiers{})
	if err != nil {
		t.Fatalf("table names: %v", err)
	}
	for _, n := range names {
		if n == "sqlite_sequence" {
			t.Error("system table leaked into names")
		}
	}
}

func TestIntrospector_Statistics(t *testing.T) {
	pool := openTestDB(t)
	seedStudents(t, pool)

	in := &Introspector{}
	stats, err := in.Statistics(context.Background(), pool, datasource.Qualifiers{}, []string{"students"})
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat, got %d", len(stats))
	}
	s := stats[0]
	if s.RowCount == nil || *s.RowCount != 3 {
		t.Errorf("row count = %v", s.RowCount)
	}
	if s.ColumnCount != 4 {
		t.Errorf("column count = %d", s.ColumnCount)
	}
}

func TestRunner_Run(t *testing.T) {
	pool := openTestDB(t)
	seedStudents(t, pool)

	runner := &Runner{}
	result, err := runner.Run(context.Background(), pool, "SELECT AVG(cgpa) AS avg_cgpa FROM students")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Columns) != 1 || result.Columns[0] != "avg_cgpa" {
		t.Errorf("columns = %v", result.Columns)
	}
	if result.RowCount != 1 {
		t.Fatalf("row count = %d", result.RowCount)
	}
	avg, ok := result.Rows[0][0].(float64)
	if !ok {
		t.Fatalf("avg type = %T", result.Rows[0][0])
	}
	if avg < 8.19 || avg > 8.21 {
		t.Errorf("avg = %f, want ~8.2", avg)
	}
}

func TestRunner_RunErrorOnMissingTable(t *testing.T) {
	pool := openTestDB(t)

	runner := &Runner{}
	if _, err := runner.Run(context.Background(), pool, "SELECT * FROM nope"); err == nil {
		t.Fatal("expected error for missing table")
	}
}
