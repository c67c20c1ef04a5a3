package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

// pgxQuerier is the slice of pgxpool.Pool the introspector and runner need.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Runner executes validated read-only queries through pgx.
type Runner struct{}

// Run executes the query and drains the result set. pgx decodes values to
// native Go types via rows.Values, so no manual column scanning is needed.
func (r *Runner) Run(ctx context.Context, pool datasource.PoolConnector, query string) (*datasource.QueryResult, error) {
	p, err := pgxPool(pool)
	if err != nil {
		return nil, err
	}

	rows, err := p.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	result := &datasource.QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

var _ datasource.Runner = (*Runner)(nil)
