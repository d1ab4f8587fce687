package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"askerfotball-ai/internal/answerer"
	"askerfotball-ai/internal/contextutil"
	"askerfotball-ai/internal/vectorstore"
)

// HealthHandler reports process health: database reachability, whether
// a retrieval index is loaded, and mirror reachability when a vector
// mirror is configured.
type HealthHandler struct {
	db                 *sql.DB
	answerer           *answerer.Answerer
	mirror             vectorstore.VectorStore
	collection         string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. mirror may be nil when
// no vector mirror is configured.
func NewHealthHandler(db *sql.DB, a *answerer.Answerer, mirror vectorstore.VectorStore, collection string) *HealthHandler {
	return &HealthHandler{
		db:                 db,
		answerer:           a,
		mirror:             mirror,
		collection:         collection,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP answers GET /api/health. Returns 200 when healthy and 503
// otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if err := h.db.PingContext(checkCtx); err != nil {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		checks["database"] = "error"
		issues = append(issues, "database_unavailable")
	} else {
		checks["database"] = "ok"
	}

	if h.answerer.Ready() {
		checks["index"] = "ok"
	} else {
		checks["index"] = "missing"
		issues = append(issues, "index_not_built")
	}

	if h.mirror != nil {
		exists, err := h.mirror.CollectionExists(checkCtx, h.collection)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "vector store health check failed", "error", err)
			checks["vector_store"] = "error"
			issues = append(issues, "vector_store_unavailable")
		case !exists:
			checks["vector_store"] = "missing"
			issues = append(issues, "vector_store_collection_missing")
		default:
			checks["vector_store"] = "ok"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if len(issues) > 0 {
		response.Issues = issues
	}

	writeJSON(ctx, w, httpStatus, response)
}
