package mssql

import (
	"context"
	"fmt"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

// Runner executes validated read-only queries through database/sql.
type Runner struct{}

// Run executes the query and scans the result set with the shared
// database/sql row scanner.
func (r *Runner) Run(ctx context.Context, pool datasource.PoolConnector, query string) (*datasource.QueryResult, error) {
	db, err := sqlDB(pool)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanRows(rows)
}

var _ datasource.Runner = (*Runner)(nil)
