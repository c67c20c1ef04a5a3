// Package sqlite implements the SQLite dialect driver on modernc.org/sqlite,
// a pure-Go driver. Besides serving file-backed databases it gives the rest
// of the system a dialect that integration tests can run without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
)

func init() {
	datasource.Register(NewDriver())
}

// NewDriver returns the SQLite driver.
func NewDriver() *datasource.Driver {
	return &datasource.Driver{
		Dialect:      connstring.DialectSQLite,
		Open:         Open,
		Introspector: &Introspector{},
		Runner:       &Runner{},
	}
}

// Open resolves the file path from the connection string and opens the
// database. An empty path or :memory: opens an in-memory database.
func Open(ctx context.Context, connString string, cfg datasource.PoolConfig) (datasource.PoolConnector, error) {
	dsn := dsnFrom(connString)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	datasource.ConfigureDB(db, cfg)
	if dsn == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return datasource.NewSQLPoolWrapper(db, "sqlite"), nil
}

// dsnFrom maps URL-style sqlite connection strings to file paths:
//
//	sqlite://            -> :memory:
//	sqlite://:memory:    -> :memory:
//	sqlite:///app.db     -> app.db (relative)
//	sqlite:////data/a.db -> /data/a.db (absolute)
func dsnFrom(connString string) string {
	rest := strings.TrimPrefix(connString, "sqlite:")
	rest = strings.TrimPrefix(rest, "//")

	if rest == "" || rest == ":memory:" {
		return ":memory:"
	}
	if strings.HasPrefix(rest, "/") {
		return rest[1:]
	}
	return rest
}

// sqlDB extracts the database/sql handle from a connector created by Open.
func sqlDB(pool datasource.PoolConnector) (*sql.DB, error) {
	w, ok := pool.(*datasource.SQLPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("sqlite driver received %T instead of a database/sql pool", pool)
	}
	return w.DB(), nil
}
