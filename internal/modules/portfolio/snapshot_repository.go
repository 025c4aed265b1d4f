package portfolio

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotRepository stores daily portfolio value snapshots.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Save inserts or replaces the snapshot for its date (midnight UTC).
func (r *SnapshotRepository) Save(s Snapshot) error {
	date := time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)

	weights, err := json.Marshal(s.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO snapshots (date, total_value, weights, created_at)
		VALUES (?, ?, ?, ?)
	`, date.Unix(), s.TotalValue, string(weights), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	r.log.Debug().
		Time("date", date).
		Float64("total_value", s.TotalValue).
		Msg("Saved snapshot")

	return nil
}

// GetRange returns snapshots between two dates inclusive, oldest first.
func (r *SnapshotRepository) GetRange(start, end time.Time) ([]Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT date, total_value, weights
		FROM snapshots
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var dateUnix int64
		var weights string

		if err := rows.Scan(&dateUnix, &s.TotalValue, &weights); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		s.Date = time.Unix(dateUnix, 0).UTC()
		if err := json.Unmarshal([]byte(weights), &s.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// GetLatest returns the most recent snapshot. Returns nil if none exist.
func (r *SnapshotRepository) GetLatest() (*Snapshot, error) {
	var s Snapshot
	var dateUnix int64
	var weights string

	err := r.db.QueryRow(`
		SELECT date, total_value, weights
		FROM snapshots
		ORDER BY date DESC
		LIMIT 1
	`).Scan(&dateUnix, &s.TotalValue, &weights)

	if err == sql.ErrNoRows {
		return nil, nil // Not found (not an error)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	s.Date = time.Unix(dateUnix, 0).UTC()
	if err := json.Unmarshal([]byte(weights), &s.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}

	return &s, nil
}
