// Package mssql implements the SQL Server dialect driver on go-mssqldb
// through database/sql.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
)

const defaultPort = "1433"

func init() {
	datasource.Register(NewDriver())
}

// NewDriver returns the SQL Server driver.
func NewDriver() *datasource.Driver {
	return &datasource.Driver{
		Dialect:      connstring.DialectSQLServer,
		Open:         Open,
		Introspector: &Introspector{},
		Runner:       &Runner{},
	}
}

// driverURL rebuilds the connection string in go-mssqldb's URL form,
// moving the database from the path into the query as the driver expects
// and defaulting the port.
func driverURL(connString string, cfg datasource.PoolConfig) (*url.URL, error) {
	desc, err := connstring.Parse(connString)
	if err != nil {
		return nil, fmt.Errorf("parse sqlserver connection string: %w", err)
	}

	port := desc.Port
	if port == "" {
		port = defaultPort
	}

	params, err := url.ParseQuery(desc.RawQuery)
	if err != nil {
		params = url.Values{}
	}
	if db := desc.Database(); db != "" {
		params.Set("database", db)
	}
	params.Set("dial timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(desc.Host, port),
		RawQuery: params.Encode(),
	}
	if desc.Username != "" {
		u.User = url.UserPassword(desc.Username, desc.Password)
	}
	return u, nil
}

// Open opens a database/sql pool for SQL Server with the shared sizing
// applied.
func Open(ctx context.Context, connString string, cfg datasource.PoolConfig) (datasource.PoolConnector, error) {
	u, err := driverURL(connString, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver pool: %w", err)
	}
	datasource.ConfigureDB(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	return datasource.NewSQLPoolWrapper(db, "mssql"), nil
}

// sqlDB extracts the database/sql handle from a connector created by Open.
func sqlDB(pool datasource.PoolConnector) (*sql.DB, error) {
	w, ok := pool.(*datasource.SQLPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("sqlserver driver received %T instead of a database/sql pool", pool)
	}
	return w.DB(), nil
}
