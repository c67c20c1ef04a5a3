package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/logging"
	"github.com/nehasindhwani0110/k-gai/pkg/services"
)

// CatalogRequest is the common request body for catalog endpoints.
type CatalogRequest struct {
	ConnectionString    string   `json:"connection_string"`
	DatabaseName        string   `json:"database_name,omitempty"`
	SchemaName          string   `json:"schema_name,omitempty"`
	IncludeSystemTables bool     `json:"include_system_tables,omitempty"`
	ForceRefresh        bool     `json:"force_refresh,omitempty"`
	TableNames          []string `json:"table_names,omitempty"`
	TableName           string   `json:"table_name,omitempty"`
}

func (r *CatalogRequest) toService() services.CatalogRequest {
	return services.CatalogRequest{
		ConnectionString:    r.ConnectionString,
		Database:            r.DatabaseName,
		Schema:              r.SchemaName,
		IncludeSystemTables: r.IncludeSystemTables,
		ForceRefresh:        r.ForceRefresh,
	}
}

// TablesResponse wraps the per-table metadata list.
type TablesResponse struct {
	Tables []datasource.TableMetadata `json:"tables"`
}

// TableStats is the per-table slice of a StatisticsResponse.
type TableStats struct {
	RowCount    *int64 `json:"row_count"`
	SizeBytes   *int64 `json:"size_bytes"`
	ColumnCount int    `json:"column_count"`
}

// StatisticsResponse maps table name to its statistics.
type StatisticsResponse struct {
	Statistics map[string]TableStats `json:"statistics"`
}

// ValidateTableResponse reports whether a single table exists.
type ValidateTableResponse struct {
	TableName string `json:"table_name"`
	Exists    bool   `json:"exists"`
}

// CatalogHandler handles schema metadata HTTP requests.
type CatalogHandler struct {
	catalogService services.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogService services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, logger: logger}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /introspect", h.Introspect)
	mux.HandleFunc("GET /introspect", h.Introspect)
	mux.HandleFunc("POST /system-catalog", h.Catalog)
	mux.HandleFunc("POST /system-catalog/tables", h.Tables)
	mux.HandleFunc("POST /system-catalog/statistics", h.Statistics)
	mux.HandleFunc("POST /system-catalog/validate", h.ValidateTable)
}

func (h *CatalogHandler) decode(w http.ResponseWriter, r *http.Request) (*CatalogRequest, bool) {
	var req CatalogRequest
	if r.Method == http.MethodGet {
		// GET carries the request in query parameters.
		params := r.URL.Query()
		req.ConnectionString = params.Get("connection_string")
		req.DatabaseName = params.Get("database_name")
		req.SchemaName = params.Get("schema_name")
		req.IncludeSystemTables = params.Get("include_system_tables") == "true"
		req.ForceRefresh = params.Get("force_refresh") == "true"
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	if req.ConnectionString == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_connection_string", "connection_string is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return &req, true
}

// Introspect handles POST /introspect
// Performs a fresh introspection, refreshing the schema cache.
func (h *CatalogHandler) Introspect(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	catalog, err := h.catalogService.Introspect(r.Context(), req.toService())
	if err != nil {
		h.logger.Error("Introspection failed",
			zap.String("connection", logging.SanitizeConnectionString(req.ConnectionString)),
			zap.String("error", logging.SanitizeError(err)))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, catalog); err != nil {
		h.logger.Error("Failed to encode catalog response", zap.Error(err))
	}
}

// Catalog handles POST /system-catalog
// Returns the full catalog, served from cache when fresh.
func (h *CatalogHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	catalog, err := h.catalogService.Catalog(r.Context(), req.toService())
	if err != nil {
		h.logger.Error("Catalog fetch failed",
			zap.String("connection", logging.SanitizeConnectionString(req.ConnectionString)),
			zap.String("error", logging.SanitizeError(err)))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, catalog); err != nil {
		h.logger.Error("Failed to encode catalog response", zap.Error(err))
	}
}

// Tables handles POST /system-catalog/tables
// Returns metadata for the requested tables only.
func (h *CatalogHandler) Tables(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if len(req.TableNames) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_table_names", "table_names is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	tables, err := h.catalogService.Tables(r.Context(), req.toService(), req.TableNames)
	if err != nil {
		h.logger.Error("Table metadata fetch failed",
			zap.Strings("tables", req.TableNames),
			zap.String("error", logging.SanitizeError(err)))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, TablesResponse{Tables: tables}); err != nil {
		h.logger.Error("Failed to encode tables response", zap.Error(err))
	}
}

// Statistics handles POST /system-catalog/statistics
// Returns row counts and on-disk sizes. Always live, never cached.
func (h *CatalogHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	stats, err := h.catalogService.Statistics(r.Context(), req.toService(), req.TableNames)
	if err != nil {
		h.logger.Error("Statistics fetch failed",
			zap.String("error", logging.SanitizeError(err)))
		writeServiceError(w, h.logger, err)
		return
	}

	response := StatisticsResponse{Statistics: make(map[string]TableStats, len(stats))}
	for _, stat := range stats {
		response.Statistics[stat.TableName] = TableStats{
			RowCount:    stat.RowCount,
			SizeBytes:   stat.SizeBytes,
			ColumnCount: stat.ColumnCount,
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode statistics response", zap.Error(err))
	}
}

// ValidateTable handles POST /system-catalog/validate
// Reports whether the named table exists in the catalog.
func (h *CatalogHandler) ValidateTable(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.TableName == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_table_name", "table_name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	exists, err := h.catalogService.ValidateTableExists(r.Context(), req.toService(), req.TableName)
	if err != nil {
		h.logger.Error("Table validation failed",
			zap.String("table", req.TableName),
			zap.String("error", logging.SanitizeError(err)))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ValidateTableResponse{TableName: req.TableName, Exists: exists}); err != nil {
		h.logger.Error("Failed to encode validate response", zap.Error(err))
	}
}
