package handlers

import (
	"errors"
	"net/http"

	"askerfotball-ai/internal/answerer"
	"askerfotball-ai/internal/contextutil"
	"askerfotball-ai/internal/indexer"
	"askerfotball-ai/internal/vectorizer"
)

// ReindexHandler rebuilds the index from the knowledge base and swaps
// it into the serving answerer.
type ReindexHandler struct {
	pipeline *indexer.Pipeline
	answerer *answerer.Answerer
}

// NewReindexHandler creates a new ReindexHandler.
func NewReindexHandler(p *indexer.Pipeline, a *answerer.Answerer) *ReindexHandler {
	return &ReindexHandler{pipeline: p, answerer: a}
}

// ReindexResponse summarizes a completed rebuild.
type ReindexResponse struct {
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Mode       string `json:"mode"`
	Dimension  int    `json:"dimension"`
	DurationMS int64  `json:"duration_ms"`
}

// ServeHTTP answers POST /api/reindex. The rebuild is synchronous;
// queries keep serving the old bundle until the swap.
func (h *ReindexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	bundle, stats, err := h.pipeline.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, vectorizer.ErrVectorization) {
			logger.ErrorContext(ctx, "reindex failed on embedding service", "error", err)
			writeError(ctx, w, http.StatusBadGateway, "Embedding service unavailable")
			return
		}
		logger.ErrorContext(ctx, "reindex failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to rebuild index")
		return
	}

	if err := h.answerer.SetBundle(bundle); err != nil {
		logger.ErrorContext(ctx, "failed to install rebuilt index", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to install rebuilt index")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ReindexResponse{
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
		Mode:       stats.Mode,
		Dimension:  stats.Dimension,
		DurationMS: stats.Duration.Milliseconds(),
	})
}
