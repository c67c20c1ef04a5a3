package datasource

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConnector abstracts connection pool operations across drivers that
// manage their own pools (pgxpool) and those built on database/sql.
type PoolConnector interface {
	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes all connections in the pool
	Close() error

	// GetType returns the database type for logging/stats
	GetType() string
}

// PgxPoolWrapper wraps *pgxpool.Pool to implement PoolConnector
type PgxPoolWrapper struct {
	pool *pgxpool.Pool
}

// NewPgxPoolWrapper creates a PoolConnector backed by a pgx pool.
func NewPgxPoolWrapper(pool *pgxpool.Pool) *PgxPoolWrapper {
	return &PgxPoolWrapper{pool: pool}
}

// Ping verifies the PostgreSQL connection is alive
func (w *PgxPoolWrapper) Ping(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

// Close closes all connections in the pool
func (w *PgxPoolWrapper) Close() error {
	w.pool.Close()
	return nil
}

// GetType returns the database type
func (w *PgxPoolWrapper) GetType() string {
	return "postgres"
}

// Pool returns the underlying *pgxpool.Pool
func (w *PgxPoolWrapper) Pool() *pgxpool.Pool {
	return w.pool
}

// SQLPoolWrapper wraps *sql.DB to implement PoolConnector. It serves every
// dialect whose driver goes through database/sql.
type SQLPoolWrapper struct {
	db  *sql.DB
	typ string
}

// NewSQLPoolWrapper creates a PoolConnector backed by database/sql.
func NewSQLPoolWrapper(db *sql.DB, typ string) *SQLPoolWrapper {
	return &SQLPoolWrapper{db: db, typ: typ}
}

// Ping verifies the connection is alive
func (w *SQLPoolWrapper) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Close closes all connections in the pool
func (w *SQLPoolWrapper) Close() error {
	return w.db.Close()
}

// GetType returns the database type
func (w *SQLPoolWrapper) GetType() string {
	return w.typ
}

// DB returns the underlying *sql.DB
func (w *SQLPoolWrapper) DB() *sql.DB {
	return w.db
}

// ConfigureDB applies shared pool settings to a database/sql handle.
func ConfigureDB(db *sql.DB, cfg PoolConfig) {
	db.SetMaxOpenConns(cfg.MaxConns())
	db.SetMaxIdleConns(cfg.Size)
	db.SetConnMaxLifetime(cfg.Recycle)
}
