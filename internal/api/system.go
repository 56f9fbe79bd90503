package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nelfi/navigator/internal/corpus"
)

// Reindexer rebuilds the document index.
type Reindexer interface {
	Reindex(ctx context.Context) (*corpus.BuildResult, error)
}

// Pinger checks the database connection for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServiceInfo is the static part of the root descriptor.
type ServiceInfo struct {
	Name           string
	Version        string
	Model          string
	EmbeddingModel string
	Provider       string
}

// SystemHandler serves the descriptor, probes, and the reindex endpoint.
type SystemHandler struct {
	reindexer Reindexer
	pinger    Pinger
	info      ServiceInfo
	logger    *slog.Logger
}

// NewSystemHandler creates the handler.
func NewSystemHandler(reindexer Reindexer, pinger Pinger, info ServiceInfo, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{reindexer: reindexer, pinger: pinger, info: info, logger: logger}
}

// RegisterRoutes registers system routes on the given mux.
func (h *SystemHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
	mux.HandleFunc("POST /reindex", h.reindex)
}

// root describes the service and its endpoints.
func (h *SystemHandler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":         h.info.Name,
		"version":         h.info.Version,
		"status":          "running",
		"model":           h.info.Model,
		"embedding_model": h.info.EmbeddingModel,
		"provider":        h.info.Provider,
		"endpoints": map[string]string{
			"signup":        "POST /signup",
			"chat":          "POST /chat",
			"history":       "GET /history/{phone}",
			"clear_history": "DELETE /history/{phone}",
			"reindex":       "POST /reindex",
			"health":        "GET /health",
		},
	})
}

// liveness reports that the process is alive.
func (h *SystemHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness reports whether dependencies are reachable, verified by a
// database ping.
func (h *SystemHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		http.Error(w, "database pool not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// ReindexResponse summarizes a rebuild of the document index.
type ReindexResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Sampled   bool   `json:"sampled"`
}

// reindex rebuilds the document index wholesale.
func (h *SystemHandler) reindex(w http.ResponseWriter, r *http.Request) {
	if h.reindexer == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "indexer not configured")
		return
	}

	result, err := h.reindexer.Reindex(r.Context())
	if err != nil {
		h.logger.Error("reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reindex failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ReindexResponse{
		Status:    "success",
		Documents: result.Documents,
		Chunks:    result.Chunks,
		Sampled:   result.Sampled,
	})
}
