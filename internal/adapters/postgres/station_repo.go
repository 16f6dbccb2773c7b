package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// StationRepo implements ports.StationSource with pgx. Coordinates are read
// as text so they are parsed the same way as the CSV source.
type StationRepo struct {
	db *DB
}

// NewStationRepo creates a new StationRepo.
func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

// LoadStations reads every station. Later rows win on duplicate ids.
func (r *StationRepo) LoadStations(ctx context.Context) (domain.StationIndex, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT station_id, lat::text, lon::text
		FROM stations
		ORDER BY ctid
	`)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	index := make(domain.StationIndex)
	for rows.Next() {
		var id string
		var c domain.Coordinate
		if err := rows.Scan(&id, &c.Lat, &c.Lon); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		if _, dup := index[id]; dup {
			slog.Warn("duplicate station id, keeping last", "station", id)
		}
		index[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	return index, nil
}
