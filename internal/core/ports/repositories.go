package ports

import (
	"context"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// TripSource loads trip records in input order.
type TripSource interface {
	LoadTrips(ctx context.Context) ([]domain.Trip, error)
}

// StationSource loads the station id to coordinate index.
type StationSource interface {
	LoadStations(ctx context.Context) (domain.StationIndex, error)
}
