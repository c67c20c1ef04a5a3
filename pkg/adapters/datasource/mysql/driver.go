// Package mysql implements the MySQL and MariaDB dialect driver on
// go-sql-driver/mysql through database/sql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
)

const defaultPort = "3306"

func init() {
	datasource.Register(NewDriver())
}

// NewDriver returns the MySQL driver.
func NewDriver() *datasource.Driver {
	return &datasource.Driver{
		Dialect:      connstring.DialectMySQL,
		Open:         Open,
		Introspector: &Introspector{},
		Runner:       &Runner{},
	}
}

// driverConfig maps the URL-style connection string onto a go-sql-driver
// config, defaulting the port and carrying the shared timeouts.
func driverConfig(connString string, cfg datasource.PoolConfig) (*gomysql.Config, error) {
	desc, err := connstring.Parse(connString)
	if err != nil {
		return nil, fmt.Errorf("parse mysql connection string: %w", err)
	}

	port := desc.Port
	if port == "" {
		port = defaultPort
	}

	mysqlCfg := gomysql.NewConfig()
	mysqlCfg.User = desc.Username
	mysqlCfg.Passwd = desc.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = net.JoinHostPort(desc.Host, port)
	mysqlCfg.DBName = desc.Database()
	mysqlCfg.Timeout = cfg.ConnectTimeout
	mysqlCfg.ReadTimeout = cfg.ReadTimeout
	mysqlCfg.WriteTimeout = cfg.WriteTimeout
	mysqlCfg.ParseTime = true
	return mysqlCfg, nil
}

// Open builds a go-sql-driver DSN from the URL-style connection string and
// opens a database/sql pool with the shared sizing applied.
func Open(ctx context.Context, connString string, cfg datasource.PoolConfig) (datasource.PoolConnector, error) {
	mysqlCfg, err := driverConfig(connString, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql pool: %w", err)
	}
	datasource.ConfigureDB(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return datasource.NewSQLPoolWrapper(db, "mysql"), nil
}

// sqlDB extracts the database/sql handle from a connector created by Open.
func sqlDB(pool datasource.PoolConnector) (*sql.DB, error) {
	w, ok := pool.(*datasource.SQLPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("mysql driver received %T instead of a database/sql pool", pool)
	}
	return w.DB(), nil
}
