package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/marketdata", func(r chi.Router) {
		r.Post("/sync", h.HandleSync)
		r.Post("/sync/{symbol}", h.HandleSyncSymbol)
		r.Get("/quote/{symbol}", h.HandleGetQuote)
		r.Get("/prices/{symbol}", h.HandleGetPrices)
	})
}
