package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/coursepilot/coursepilot/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.orch, s.optimizer, s.store, s.cache, s.breakers)

	r.Route("/api", func(r chi.Router) {
		// Health and operational surfaces
		r.Get("/health", h.Health)
		r.Get("/breakers", h.Breakers)
		r.Get("/cache/stats", h.CacheStats)
		r.Handle("/metrics", metricsHandler())

		// Catalog retrieval
		r.Get("/catalog/{entityType}", h.Catalog)

		// Schedule optimization
		r.Post("/optimize", h.Optimize)

		// Admin sync
		r.Post("/sync", h.TriggerSync)
		r.Get("/sync/status", h.SyncStatus)
	})
}
