package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
)

func newTestEngineCache() *datasource.EngineCache {
	registry := datasource.NewRegistry()
	return datasource.NewEngineCache(registry, datasource.DefaultPoolConfig(), time.Hour, zap.NewNop())
}

func TestCacheHandler_Stats(t *testing.T) {
	handler := NewCacheHandler(&stubCatalogService{}, newTestEngineCache(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec := httptest.NewRecorder()
	handler.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var stats datasource.CacheStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TotalPools != 0 {
		t.Errorf("expected 0 pools in empty cache, got %d", stats.TotalPools)
	}
	if stats.TTLSeconds != 3600 {
		t.Errorf("expected ttl_seconds 3600, got %d", stats.TTLSeconds)
	}
}

func TestCacheHandler_ClearSchema(t *testing.T) {
	handler := NewCacheHandler(&stubCatalogService{}, newTestEngineCache(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/cache/schema/clear", nil)
	rec := httptest.NewRecorder()
	handler.ClearSchema(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response ClearCacheResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Cleared != 2 {
		t.Errorf("expected 2 cleared entries, got %d", response.Cleared)
	}
}

func TestCacheHandler_ClearEngines(t *testing.T) {
	stub := &stubCatalogService{clearedPools: 3}
	handler := NewCacheHandler(stub, newTestEngineCache(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/cache/engines/clear", nil)
	rec := httptest.NewRecorder()
	handler.ClearEngines(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response ClearCacheResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Cleared != 3 {
		t.Errorf("expected 3 cleared pools, got %d", response.Cleared)
	}
}
