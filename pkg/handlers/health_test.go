package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/config"
	"github.com/shopquery-inc/shopquery-engine/pkg/schema"
)

func healthMux(descriptor *schema.Descriptor) *http.ServeMux {
	cfg := &config.Config{Env: "test", Version: "v1.2.3"}
	mux := http.NewServeMux()
	NewHealthHandler(cfg, descriptor, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func loadedDescriptor() *schema.Descriptor {
	return schema.NewDescriptor([]schema.Table{
		{Name: "customers", Columns: []schema.Column{{Name: "id", DataType: "integer"}}},
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	healthMux(loadedDescriptor()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		descriptor *schema.Descriptor
		wantStatus int
		wantReady  bool
	}{
		{"schema loaded", loadedDescriptor(), http.StatusOK, true},
		{"empty schema", schema.NewDescriptor(nil), http.StatusServiceUnavailable, false},
		{"no descriptor", nil, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			healthMux(tt.descriptor).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			require.Equal(t, tt.wantStatus, rec.Code)

			var resp map[string]bool
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantReady, resp["ready"])
		})
	}
}

func TestPing(t *testing.T) {
	rec := httptest.NewRecorder()
	healthMux(loadedDescriptor()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "shopquery-engine", resp.Service)
	assert.Equal(t, "v1.2.3", resp.Version)
	assert.Equal(t, "test", resp.Environment)
	assert.NotEmpty(t, resp.GoVersion)
}
