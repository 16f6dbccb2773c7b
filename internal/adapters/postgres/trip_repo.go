package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// TripRepo implements ports.TripSource with pgx.
type TripRepo struct {
	db *DB
}

// NewTripRepo creates a new TripRepo.
func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

// LoadTrips reads every trip in table order.
func (r *TripRepo) LoadTrips(ctx context.Context) ([]domain.Trip, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT start_station, end_station, duration::text, start_day_name
		FROM trips
		ORDER BY ctid
	`)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.StartStation, &t.EndStation, &t.Duration, &t.StartDayName); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		t.Fields = map[string]string{
			domain.ColumnStartStation: t.StartStation,
			domain.ColumnEndStation:   t.EndStation,
			domain.ColumnDuration:     t.Duration,
			domain.ColumnStartDayName: t.StartDayName,
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read trips: %w", err)
	}
	return trips, nil
}
