package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/services"
)

// ClearCacheResponse reports how many entries a clear removed.
type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// CacheHandler exposes cache inspection and invalidation endpoints.
type CacheHandler struct {
	catalogService services.CatalogService
	engines        *datasource.EngineCache
	logger         *zap.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(catalogService services.CatalogService, engines *datasource.EngineCache, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{catalogService: catalogService, engines: engines, logger: logger}
}

// RegisterRoutes registers the cache handler's routes on the given mux.
func (h *CacheHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /cache/stats", h.Stats)
	mux.HandleFunc("POST /cache/schema/clear", h.ClearSchema)
	mux.HandleFunc("POST /cache/engines/clear", h.ClearEngines)
}

// Stats handles GET /cache/stats
// Returns connection pool cache statistics.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, h.engines.Stats()); err != nil {
		h.logger.Error("Failed to encode cache stats", zap.Error(err))
	}
}

// ClearSchema handles POST /cache/schema/clear
// Drops all cached schema metadata.
func (h *CacheHandler) ClearSchema(w http.ResponseWriter, r *http.Request) {
	cleared := h.catalogService.ClearSchemaCache()
	h.logger.Info("Schema cache cleared", zap.Int("entries", cleared))

	if err := WriteJSON(w, http.StatusOK, ClearCacheResponse{Cleared: cleared}); err != nil {
		h.logger.Error("Failed to encode clear response", zap.Error(err))
	}
}

// ClearEngines handles POST /cache/engines/clear
// Closes and drops all cached connection pools.
func (h *CacheHandler) ClearEngines(w http.ResponseWriter, r *http.Request) {
	cleared := h.catalogService.ClearEngineCache()
	h.logger.Info("Engine cache cleared", zap.Int("pools", cleared))

	if err := WriteJSON(w, http.StatusOK, ClearCacheResponse{Cleared: cleared}); err != nil {
		h.logger.Error("Failed to encode clear response", zap.Error(err))
	}
}
