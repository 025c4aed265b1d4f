// Package handlers provides HTTP handlers for analytics queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/analytics"
)

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleGetPortfolioAnalysis returns portfolio-level metrics and value curve.
// Query param: days (default 365).
func (h *Handler) HandleGetPortfolioAnalysis(w http.ResponseWriter, r *http.Request) {
	days, ok := h.intParam(w, r, "days", 365)
	if !ok {
		return
	}

	analysis, err := h.service.AnalyzePortfolio(days)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, analysis)
}

// HandleGetAssetMetrics returns metrics for a single symbol.
func (h *Handler) HandleGetAssetMetrics(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	days, ok := h.intParam(w, r, "days", 365)
	if !ok {
		return
	}

	metrics, err := h.service.AnalyzeAsset(symbol, days)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, metrics)
}

// HandleGetAssetIndicators returns rolling SMA and volatility for a symbol.
// Query params: days (default 365), window (default 20).
func (h *Handler) HandleGetAssetIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	days, ok := h.intParam(w, r, "days", 365)
	if !ok {
		return
	}
	window, ok := h.intParam(w, r, "window", 20)
	if !ok {
		return
	}

	indicators, err := h.service.AssetIndicators(symbol, days, window)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, indicators)
}

// intParam parses a positive integer query parameter with a default.
func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}

	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		h.writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return parsed, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
