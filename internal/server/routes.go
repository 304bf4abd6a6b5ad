// Package server wires the HTTP endpoints into a chi router.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the application router: map page, WebSocket endpoint,
// presence listing, health, and metrics.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.MapPage)
	r.Get("/ws", h.WebSocket)
	r.Get("/users", h.Users)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
