// Package handlers provides HTTP handlers for market data operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/history"
	"github.com/koshlabs/kosh/internal/modules/marketdata"
)

// Handler handles market data HTTP requests
type Handler struct {
	service   *marketdata.Service
	priceRepo *history.PriceRepository
	log       zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(service *marketdata.Service, priceRepo *history.PriceRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		priceRepo: priceRepo,
		log:       log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleSync triggers a full market data sync for all holdings.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleSyncSymbol triggers a sync for a single holding.
func (h *Handler) HandleSyncSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.service.SyncSymbol(symbol); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "synced", "symbol": symbol})
}

// HandleGetQuote returns the live quote for an equity holding.
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.service.GetQuote(symbol)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, quote)
}

// HandleGetPrices returns stored daily prices for a symbol.
// Query param: days (default 365).
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	days := 365
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	prices, err := h.priceRepo.GetRecentPrices(symbol, days)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if prices == nil {
		prices = []history.DailyPrice{}
	}
	h.writeJSON(w, http.StatusOK, prices)
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
