package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps holds the handlers wired into the HTTP router.
type Deps struct {
	Ask     http.Handler
	Health  http.Handler
	Reindex http.Handler
}

// NewRouter creates the HTTP router with logging, recovery and CORS
// middleware applied to all routes.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", deps.Ask)
		r.Method(http.MethodGet, "/health", deps.Health)
		r.Method(http.MethodPost, "/reindex", deps.Reindex)
	})

	return r
}
