// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/koshlabs/kosh/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	holdingRepo *portfolio.HoldingRepository
	service     *portfolio.Service
	log         zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(
	holdingRepo *portfolio.HoldingRepository,
	service *portfolio.Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		holdingRepo: holdingRepo,
		service:     service,
		log:         log.With().Str("handler", "portfolio").Logger(),
	}
}

// holdingRequest is the create/update payload.
type holdingRequest struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	AssetClass   string  `json:"asset_class"`
	Quantity     string  `json:"quantity"`
	CostBasis    string  `json:"cost_basis"`
	TargetWeight float64 `json:"target_weight"`
	Currency     string  `json:"currency"`
}

func (req *holdingRequest) toHolding() (*portfolio.Holding, error) {
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return nil, err
	}
	costBasis, err := decimal.NewFromString(req.CostBasis)
	if err != nil {
		return nil, err
	}

	return &portfolio.Holding{
		Symbol:       req.Symbol,
		Name:         req.Name,
		AssetClass:   portfolio.AssetClass(req.AssetClass),
		Quantity:     quantity,
		CostBasis:    costBasis,
		TargetWeight: req.TargetWeight,
		Currency:     req.Currency,
	}, nil
}

// HandleListHoldings returns all holdings in the ledger.
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdingRepo.GetAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if holdings == nil {
		holdings = []portfolio.Holding{}
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

// HandleCreateHolding adds a new holding.
func (h *Handler) HandleCreateHolding(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	holding, err := req.toHolding()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid quantity or cost basis")
		return
	}

	existing, err := h.holdingRepo.GetBySymbol(holding.Symbol)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		h.writeError(w, http.StatusConflict, "holding already exists for symbol "+holding.Symbol)
		return
	}

	if err := h.holdingRepo.Create(holding); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, holding)
}

// HandleGetHolding returns one holding by ID.
func (h *Handler) HandleGetHolding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	holding, err := h.holdingRepo.GetByID(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if holding == nil {
		h.writeError(w, http.StatusNotFound, "holding not found")
		return
	}

	h.writeJSON(w, http.StatusOK, holding)
}

// HandleUpdateHolding replaces a holding's fields.
func (h *Handler) HandleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.holdingRepo.GetByID(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "holding not found")
		return
	}

	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	holding, err := req.toHolding()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid quantity or cost basis")
		return
	}
	holding.ID = id
	holding.CreatedAt = existing.CreatedAt

	if err := h.holdingRepo.Update(holding); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, holding)
}

// HandleDeleteHolding removes a holding.
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.holdingRepo.GetByID(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "holding not found")
		return
	}

	if err := h.holdingRepo.Delete(id); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleGetSummary returns the valued portfolio.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetSnapshots returns value snapshots for a date range.
// Query params: start, end (YYYY-MM-DD); defaults to the last year.
func (h *Handler) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return
		}
		end = t
	}

	snapshots, err := h.service.GetSnapshots(start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if snapshots == nil {
		snapshots = []portfolio.Snapshot{}
	}
	h.writeJSON(w, http.StatusOK, snapshots)
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
