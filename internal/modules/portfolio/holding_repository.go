package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HoldingRepository handles holding database operations against portfolio.db.
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository.
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

const holdingColumns = `id, symbol, name, asset_class, quantity, cost_basis,
	target_weight, currency, created_at, updated_at`

// GetAll returns all holdings ordered by symbol.
func (r *HoldingRepository) GetAll() ([]Holding, error) {
	rows, err := r.db.Query(`SELECT ` + holdingColumns + ` FROM holdings ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetByID returns a holding by ID. Returns nil if not found (not an error).
func (r *HoldingRepository) GetByID(id string) (*Holding, error) {
	row := r.db.QueryRow(`SELECT `+holdingColumns+` FROM holdings WHERE id = ?`, id)

	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, nil // Not found (not an error)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &h, nil
}

// GetBySymbol returns a holding by symbol. Returns nil if not found (not an error).
func (r *HoldingRepository) GetBySymbol(symbol string) (*Holding, error) {
	row := r.db.QueryRow(`SELECT `+holdingColumns+` FROM holdings WHERE symbol = ?`, symbol)

	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, nil // Not found (not an error)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &h, nil
}

// Create inserts a new holding. A missing ID is generated; timestamps are set.
func (r *HoldingRepository) Create(h *Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}

	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO holdings
		(id, symbol, name, asset_class, quantity, cost_basis, target_weight, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		h.ID, h.Symbol, h.Name, string(h.AssetClass),
		h.Quantity.String(), h.CostBasis.String(),
		h.TargetWeight, h.Currency,
		h.CreatedAt.Unix(), h.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	r.log.Info().
		Str("symbol", h.Symbol).
		Str("asset_class", string(h.AssetClass)).
		Str("quantity", h.Quantity.String()).
		Msg("Created holding")

	return nil
}

// Update replaces a holding's mutable fields.
func (r *HoldingRepository) Update(h *Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}

	h.UpdatedAt = time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE holdings
		SET symbol = ?, name = ?, asset_class = ?, quantity = ?, cost_basis = ?,
		    target_weight = ?, currency = ?, updated_at = ?
		WHERE id = ?
	`,
		h.Symbol, h.Name, string(h.AssetClass),
		h.Quantity.String(), h.CostBasis.String(),
		h.TargetWeight, h.Currency, h.UpdatedAt.Unix(),
		h.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("holding not found: %s", h.ID)
	}

	r.log.Info().Str("symbol", h.Symbol).Msg("Updated holding")

	return nil
}

// Delete removes a holding by ID.
func (r *HoldingRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM holdings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("holding not found: %s", id)
	}

	r.log.Info().Str("id", id).Msg("Deleted holding")

	return nil
}

// scannable abstracts *sql.Row and *sql.Rows for scanHolding.
type scannable interface {
	Scan(dest ...any) error
}

func scanHolding(row scannable) (Holding, error) {
	var h Holding
	var assetClass, quantity, costBasis string
	var createdAt, updatedAt int64

	err := row.Scan(
		&h.ID, &h.Symbol, &h.Name, &assetClass,
		&quantity, &costBasis,
		&h.TargetWeight, &h.Currency,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return Holding{}, err
	}

	h.AssetClass = AssetClass(assetClass)

	h.Quantity, err = decimal.NewFromString(quantity)
	if err != nil {
		return Holding{}, fmt.Errorf("invalid stored quantity %q: %w", quantity, err)
	}
	h.CostBasis, err = decimal.NewFromString(costBasis)
	if err != nil {
		return Holding{}, fmt.Errorf("invalid stored cost basis %q: %w", costBasis, err)
	}

	h.CreatedAt = time.Unix(createdAt, 0).UTC()
	h.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return h, nil
}
