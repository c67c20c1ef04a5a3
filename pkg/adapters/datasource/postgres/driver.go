// Package postgres implements the PostgreSQL dialect driver on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
)

func init() {
	datasource.Register(NewDriver())
}

// NewDriver returns the PostgreSQL driver.
func NewDriver() *datasource.Driver {
	return &datasource.Driver{
		Dialect:      connstring.DialectPostgres,
		Open:         Open,
		Introspector: &Introspector{},
		Runner:       &Runner{},
	}
}

// Open creates a pgx pool configured from cfg and verifies connectivity
// before handing the pool back.
func Open(ctx context.Context, connString string, cfg datasource.PoolConfig) (datasource.PoolConnector, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns())
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = cfg.Recycle
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return datasource.NewPgxPoolWrapper(pool), nil
}

// pgxPool extracts the pgx pool from a connector created by Open.
func pgxPool(pool datasource.PoolConnector) (*pgxpool.Pool, error) {
	w, ok := pool.(*datasource.PgxPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("postgres driver received %T instead of a pgx pool", pool)
	}
	return w.Pool(), nil
}
