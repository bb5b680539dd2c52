package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/config"
	"github.com/shopquery-inc/shopquery-engine/pkg/schema"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles liveness, readiness and ping endpoints.
type HealthHandler struct {
	cfg        *config.Config
	descriptor *schema.Descriptor
	logger     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. The descriptor reference
// doubles as the readiness signal: it only exists once schema introspection
// succeeded.
func NewHealthHandler(cfg *config.Config, descriptor *schema.Descriptor, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, descriptor: descriptor, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ready", h.Ready)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests. Plain liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready handles GET /ready requests. True once the schema descriptor has
// loaded.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.descriptor == nil || h.descriptor.IsEmpty() {
		if err := WriteJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false}); err != nil {
			h.logger.Error("Failed to encode ready response", zap.Error(err))
		}
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]bool{"ready": true}); err != nil {
		h.logger.Error("Failed to encode ready response", zap.Error(err))
	}
}

// Ping handles GET /ping requests with detailed service information.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "shopquery-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
