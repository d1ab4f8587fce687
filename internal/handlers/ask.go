package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"askerfotball-ai/internal/answerer"
	"askerfotball-ai/internal/contextutil"
	"askerfotball-ai/internal/indexstore"
	"askerfotball-ai/internal/vectorizer"
)

// maxK bounds the number of sources a client may request.
const maxK = 20

// AskHandler handles question requests against the knowledge base.
type AskHandler struct {
	answerer *answerer.Answerer
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(a *answerer.Answerer) *AskHandler {
	return &AskHandler{answerer: a}
}

// AskRequest represents the HTTP request payload for questions.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// SourceResponse cites one chunk used for the answer.
type SourceResponse struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	DocType string `json:"doc_type"`
}

// AskResponse represents the HTTP response payload for questions.
type AskResponse struct {
	Answer  string           `json:"answer"`
	Sources []SourceResponse `json:"sources"`
}

// ServeHTTP answers POST /api/ask.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(ctx, w, http.StatusBadRequest, "Question is required")
		return
	}

	// Zero means "use the configured default".
	if req.K < 0 {
		req.K = 0
	}
	if req.K > maxK {
		req.K = maxK
	}

	ans, err := h.answerer.Ask(ctx, req.Question, req.K)
	if err != nil {
		h.handleAskError(w, r, err)
		return
	}

	sources := make([]SourceResponse, len(ans.Sources))
	for i, s := range ans.Sources {
		sources[i] = SourceResponse{Title: s.Title, Source: s.Source, DocType: s.DocType}
	}

	logger.InfoContext(ctx, "question answered", "sources", len(sources))
	writeJSON(ctx, w, http.StatusOK, AskResponse{Answer: ans.Text, Sources: sources})
}

// handleAskError maps pipeline failures to HTTP statuses.
func (h *AskHandler) handleAskError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	switch {
	case errors.Is(err, indexstore.ErrIndexNotFound):
		logger.WarnContext(ctx, "question before index build", "error", err)
		writeError(ctx, w, http.StatusServiceUnavailable, "Index not built yet; run a reindex first")
	case errors.Is(err, answerer.ErrModeMismatch):
		logger.ErrorContext(ctx, "index mode mismatch", "error", err)
		writeError(ctx, w, http.StatusServiceUnavailable, "Index was built in a different vectorizer mode; run a reindex")
	case errors.Is(err, vectorizer.ErrVectorization):
		logger.ErrorContext(ctx, "embedding service failure", "error", err)
		writeError(ctx, w, http.StatusBadGateway, "Embedding service unavailable")
	default:
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to answer question")
	}
}
