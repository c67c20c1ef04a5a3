package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the service.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8484"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Catalog and connection cache settings
	Catalog CatalogConfig `yaml:"catalog"`
}

// CatalogConfig holds cache TTLs and connection pool sizing for the
// databases this service introspects and queries.
type CatalogConfig struct {
	// EngineTTLSeconds is how long a cached connection pool lives before
	// it is rebuilt.
	EngineTTLSeconds int `yaml:"engine_ttl_seconds" env:"CATALOG_ENGINE_TTL_SECONDS" env-default:"3600"`

	// SchemaTTLSeconds is how long cached schema metadata stays fresh.
	SchemaTTLSeconds int `yaml:"schema_ttl_seconds" env:"CATALOG_SCHEMA_TTL_SECONDS" env-default:"300"`

	// PoolSize is the base number of connections per pool.
	PoolSize int `yaml:"pool_size" env:"CATALOG_POOL_SIZE" env-default:"5"`

	// PoolMaxOverflow is how many connections beyond PoolSize a pool may
	// open under load.
	PoolMaxOverflow int `yaml:"pool_max_overflow" env:"CATALOG_POOL_MAX_OVERFLOW" env-default:"10"`

	// PoolTimeoutSeconds is how long to wait for a free connection.
	PoolTimeoutSeconds int `yaml:"pool_timeout_seconds" env:"CATALOG_POOL_TIMEOUT_SECONDS" env-default:"30"`

	// PoolRecycleSeconds is the maximum lifetime of a single connection.
	PoolRecycleSeconds int `yaml:"pool_recycle_seconds" env:"CATALOG_POOL_RECYCLE_SECONDS" env-default:"3600"`

	// ConnectTimeoutSeconds bounds dialing a new database connection.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" env:"CATALOG_CONNECT_TIMEOUT_SECONDS" env-default:"10"`

	// ReadTimeoutSeconds bounds reads on dialects that support it.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds" env:"CATALOG_READ_TIMEOUT_SECONDS" env-default:"30"`

	// WriteTimeoutSeconds bounds writes on dialects that support it.
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" env:"CATALOG_WRITE_TIMEOUT_SECONDS" env-default:"30"`
}

// EngineTTL returns the pool cache TTL as a duration.
func (c *CatalogConfig) EngineTTL() time.Duration {
	return time.Duration(c.EngineTTLSeconds) * time.Second
}

// SchemaTTL returns the schema cache TTL as a duration.
func (c *CatalogConfig) SchemaTTL() time.Duration {
	return time.Duration(c.SchemaTTLSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml is absent the environment alone is used.
// The version parameter is injected at build time and set on the returned
// Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}

// Addr returns the bind address in host:port form.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}
