package main

import (
	"log"
	"net/http"
	"time"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	_ "github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource/mssql"
	_ "github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource/mysql"
	_ "github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource/postgres"
	_ "github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource/sqlite"
	"github.com/nehasindhwani0110/k-gai/pkg/config"
	"github.com/nehasindhwani0110/k-gai/pkg/handlers"
	"github.com/nehasindhwani0110/k-gai/pkg/logging"
	"github.com/nehasindhwani0110/k-gai/pkg/middleware"
	"github.com/nehasindhwani0110/k-gai/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	datasource.Default().SetLogger(logger)

	// Log startup configuration
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", cfg.Env)
	log.Printf("  Engine cache TTL: %s", cfg.Catalog.EngineTTL())
	log.Printf("  Schema cache TTL: %s", cfg.Catalog.SchemaTTL())
	log.Printf("  Pool size: %d (+%d overflow)", cfg.Catalog.PoolSize, cfg.Catalog.PoolMaxOverflow)
	log.Printf("  Supported dialects: %v", datasource.Default().Dialects())

	poolCfg := datasource.PoolConfig{
		Size:           cfg.Catalog.PoolSize,
		MaxOverflow:    cfg.Catalog.PoolMaxOverflow,
		Timeout:        time.Duration(cfg.Catalog.PoolTimeoutSeconds) * time.Second,
		Recycle:        time.Duration(cfg.Catalog.PoolRecycleSeconds) * time.Second,
		ConnectTimeout: time.Duration(cfg.Catalog.ConnectTimeoutSeconds) * time.Second,
		ReadTimeout:    time.Duration(cfg.Catalog.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.Catalog.WriteTimeoutSeconds) * time.Second,
	}

	engines := datasource.NewEngineCache(datasource.Default(), poolCfg, cfg.Catalog.EngineTTL(), logger)
	defer engines.Clear()

	catalogService := services.NewCatalogService(engines, cfg.Catalog.SchemaTTL(), logger)
	queryService := services.NewQueryService(engines, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewCatalogHandler(catalogService, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(queryService, logger).RegisterRoutes(mux)
	handlers.NewCacheHandler(catalogService, engines, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(middleware.Recoverer(logger)(mux))

	log.Printf("Starting k-gai on %s (version: %s)", cfg.Addr(), cfg.Version)
	if err := http.ListenAndServe(cfg.Addr(), handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
