package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/logging"
	"github.com/nehasindhwani0110/k-gai/pkg/services"
)

// ExecuteRequest is the request body for query endpoints.
type ExecuteRequest struct {
	ConnectionString string `json:"connection_string"`
	Query            string `json:"query"`
}

// ExecuteResponse returns query results as one object per row.
type ExecuteResponse struct {
	Success  bool             `json:"success"`
	Columns  []string         `json:"columns"`
	Results  []map[string]any `json:"results"`
	RowCount int              `json:"row_count"`
}

// ValidateQueryResponse reports the outcome of a dry validation run.
type ValidateQueryResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// QueryHandler handles read-only query execution requests.
type QueryHandler struct {
	queryService services.QueryService
	logger       *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(queryService services.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{queryService: queryService, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /execute", h.Execute)
	mux.HandleFunc("POST /validate", h.Validate)
}

func (h *QueryHandler) decode(w http.ResponseWriter, r *http.Request) (*ExecuteRequest, bool) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return &req, true
}

// Execute handles POST /execute
// Validates the query, runs it, and returns transport-ready rows.
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.ConnectionString == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_connection_string", "connection_string is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.queryService.Execute(r.Context(), req.ConnectionString, req.Query)
	if err != nil {
		h.logger.Error("Query execution failed",
			zap.String("query", logging.SanitizeQuery(req.Query)),
			zap.String("error", logging.SanitizeError(err)))
		writeServiceError(w, h.logger, err)
		return
	}

	response := ExecuteResponse{
		Success:  true,
		Columns:  result.Columns,
		Results:  make([]map[string]any, 0, len(result.Rows)),
		RowCount: result.RowCount,
	}
	keys := recordKeys(result.Columns)
	for _, row := range result.Rows {
		record := make(map[string]any, len(keys))
		for i, key := range keys {
			if i < len(row) {
				record[key] = row[i]
			}
		}
		response.Results = append(response.Results, record)
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode execute response", zap.Error(err))
	}
}

// recordKeys maps result columns to unique map keys. A query like
// "SELECT a, a FROM t" returns the column name twice; repeated names get a
// positional suffix (a, a_2, a_3) so no value is lost when rows are keyed
// by column. The columns field of the response keeps the original names.
func recordKeys(columns []string) []string {
	keys := make([]string, len(columns))
	used := make(map[string]bool, len(columns))
	for i, col := range columns {
		key := col
		for n := 2; used[key]; n++ {
			key = fmt.Sprintf("%s_%d", col, n)
		}
		keys[i] = key
		used[key] = true
	}
	return keys
}

// Validate handles POST /validate
// Checks the query against the read-only rules without executing it.
// Validation failures are reported in the body with a 200 status; the
// request itself succeeded.
func (h *QueryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	response := ValidateQueryResponse{Valid: true}
	if err := h.queryService.Validate(req.Query); err != nil {
		response.Valid = false
		response.Error = err.Error()
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode validate response", zap.Error(err))
	}
}
