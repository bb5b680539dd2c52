// Package handlers wires the pipeline to its HTTP surface.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/apperrors"
	"github.com/shopquery-inc/shopquery-engine/pkg/database"
)

// QuestionRequest is the inbound payload.
type QuestionRequest struct {
	Question string `json:"question"`
}

// QueryHandler accepts natural-language questions and returns generated SQL
// with its result rows.
type QueryHandler struct {
	pipeline Pipeline
	logger   *zap.Logger
}

// Pipeline is the orchestrator seam used by the handler.
type Pipeline interface {
	Handle(ctx context.Context, question string) (*database.QueryResult, error)
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(pipeline Pipeline, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
// The "POST /api/query" method pattern needs Go 1.22+; on older toolchains
// the method check is emulated here with the same 405/Allow behavior.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Query(w, r)
	})
}

// Query handles POST /api/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Request body must be JSON with a question field"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "No question provided"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.pipeline.Handle(r.Context(), question)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// writePipelineError maps a pipeline failure to the external error contract:
// a non-2xx status, the failed stage, and a generic message. Internal detail
// (driver errors, rejected SQL) never reaches the caller.
func (h *QueryHandler) writePipelineError(w http.ResponseWriter, err error) {
	pe := apperrors.AsPipelineError(err)
	if pe == nil {
		h.logger.Error("unclassified pipeline failure", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to answer the question"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	status := http.StatusInternalServerError
	switch pe.Kind {
	case apperrors.KindUpstream:
		status = http.StatusBadGateway
	case apperrors.KindTranslation:
		status = http.StatusUnprocessableEntity
	case apperrors.KindUnsafeQuery:
		status = http.StatusBadRequest
	case apperrors.KindExecution:
		status = http.StatusInternalServerError
	}

	if err := StageErrorResponse(w, status, string(pe.Stage), string(pe.Kind), pe.Message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
