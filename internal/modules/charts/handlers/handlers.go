// Package handlers provides HTTP handlers serving rendered chart images.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/charts"
)

// Handler handles chart HTTP requests
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleAllocation serves the allocation pie chart.
func (h *Handler) HandleAllocation(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.AllocationChart()
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writePNG(w, img)
}

// HandleValue serves the portfolio value line chart.
// Query param: range (1M, 3M, 6M, 1Y, 5Y, all; default 1Y).
func (h *Handler) HandleValue(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.ValueChart(r.URL.Query().Get("range"))
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writePNG(w, img)
}

// HandlePrice serves a symbol's price line chart.
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	img, err := h.service.PriceChart(symbol, r.URL.Query().Get("range"))
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writePNG(w, img)
}

// RegisterRoutes registers all chart routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Get("/allocation", h.HandleAllocation)
		r.Get("/value", h.HandleValue)
		r.Get("/price/{symbol}", h.HandlePrice)
	})
}

func (h *Handler) writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart image")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
