package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/portfolio", h.HandleGetPortfolioAnalysis)
		r.Get("/assets/{symbol}", h.HandleGetAssetMetrics)
		r.Get("/assets/{symbol}/indicators", h.HandleGetAssetIndicators)
	})
}
