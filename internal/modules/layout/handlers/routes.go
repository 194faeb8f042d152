package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all layout routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/layout", func(r chi.Router) {
		r.Post("/optimize", h.HandleOptimize)
		r.Get("/optimize/stream", h.HandleOptimizeStream)
		r.Post("/optimize/batch", h.HandleOptimizeBatch)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{id}", h.HandleGetRun)
	})
}
