package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	sqlitedriver "github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource/sqlite"
	"github.com/nehasindhwani0110/k-gai/pkg/apperrors"
)

// setupSchoolDB creates a file-backed sqlite database with a students table
// and returns its connection string.
func setupSchoolDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "school.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE students (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			cgpa REAL,
			deleted_at TEXT
		)`,
		`INSERT INTO students (id, name, cgpa) VALUES
			(1, 'Asha', 8.2), (2, 'Ravi', 7.4), (3, 'Meena', 9.0)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return "sqlite:///" + path
}

func newSQLiteServices(t *testing.T) (CatalogService, QueryService) {
	t.Helper()
	registry := datasource.NewRegistry()
	registry.Register(sqlitedriver.NewDriver())

	engines := datasource.NewEngineCache(registry, datasource.DefaultPoolConfig(), time.Hour, zap.NewNop())
	t.Cleanup(func() { engines.Clear() })

	return NewCatalogService(engines, 5*time.Minute, zap.NewNop()),
		NewQueryService(engines, zap.NewNop())
}

func TestEndToEnd_IntrospectAndQuery(t *testing.T) {
	connString := setupSchoolDB(t)
	catalogSvc, querySvc := newSQLiteServices(t)
	ctx := context.Background()

	catalog, err := catalogSvc.Catalog(ctx, CatalogRequest{ConnectionString: connString})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(catalog.Tables) != 1 || catalog.Tables[0].Name != "students" {
		t.Fatalf("catalog tables = %+v", catalog.Tables)
	}
	if catalog.Tables[0].RowCount == nil || *catalog.Tables[0].RowCount != 3 {
		t.Errorf("row count = %v", catalog.Tables[0].RowCount)
	}

	exists, err := catalogSvc.ValidateTableExists(ctx, CatalogRequest{ConnectionString: connString}, "students")
	if err != nil || !exists {
		t.Errorf("ValidateTableExists(students) = %v, %v", exists, err)
	}

	result, err := querySvc.Execute(ctx, connString, "SELECT AVG(cgpa) FROM students;")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.RowCount != 1 {
		t.Fatalf("row count = %d", result.RowCount)
	}
	avg, ok := result.Rows[0][0].(float64)
	if !ok || avg < 8.19 || avg > 8.21 {
		t.Errorf("avg = %v", result.Rows[0][0])
	}

	// A query selecting deleted_at must pass the whole-word keyword gate.
	if _, err := querySvc.Execute(ctx, connString, "SELECT deleted_at FROM students"); err != nil {
		t.Errorf("deleted_at query rejected: %v", err)
	}
}

func TestEndToEnd_WriteRejectedBeforeDatabase(t *testing.T) {
	connString := setupSchoolDB(t)
	catalogSvc, querySvc := newSQLiteServices(t)
	ctx := context.Background()

	_, err := querySvc.Execute(ctx, connString, "DROP TABLE students")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	// The table must still be there.
	exists, err := catalogSvc.ValidateTableExists(ctx, CatalogRequest{ConnectionString: connString, ForceRefresh: true}, "students")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("students table disappeared after rejected DROP")
	}
}

func TestEndToEnd_ExecutionErrorClassified(t *testing.T) {
	connString := setupSchoolDB(t)
	_, querySvc := newSQLiteServices(t)

	_, err := querySvc.Execute(context.Background(), connString, "SELECT cgpaa FROM students")
	if !errors.Is(err, apperrors.ErrExecution) {
		t.Fatalf("expected ErrExecution, got %v", err)
	}
	if reason := apperrors.ClassifyExecution(err); reason != apperrors.ReasonColumnNotFound {
		t.Errorf("reason = %s, want %s", reason, apperrors.ReasonColumnNotFound)
	}
}
