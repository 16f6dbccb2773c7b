package usecases

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/pkg/geospatial"
)

// Enricher computes the distance and average speed of each trip.
type Enricher struct {
	radius float64
}

// NewEnricher creates an Enricher using the given Earth radius. A non-positive
// radius falls back to miles.
func NewEnricher(radius float64) *Enricher {
	if radius <= 0 {
		radius = geospatial.EarthRadiusMiles
	}
	return &Enricher{radius: radius}
}

// Enrich sets Dist and MPH on every trip in place. Trips with an unknown start
// or end station get nil for both and are otherwise skipped. A non-numeric
// duration or coordinate aborts the whole pass with a *domain.ParseError.
// A zero duration produces an infinite speed.
func (e *Enricher) Enrich(ctx context.Context, trips []domain.Trip, index domain.StationIndex) (domain.EnrichStats, error) {
	stats := domain.EnrichStats{Total: len(trips)}
	points := make(map[string]domain.GeoPoint, len(index))

	for i := range trips {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		trip := &trips[i]

		startCoord, okStart := index.Lookup(trip.StartStation)
		endCoord, okEnd := index.Lookup(trip.EndStation)
		if !okStart || !okEnd {
			trip.Dist, trip.MPH = nil, nil
			stats.Unresolved++
			continue
		}

		seconds, err := strconv.ParseFloat(strings.TrimSpace(trip.Duration), 64)
		if err != nil {
			return stats, fmt.Errorf("trip %d: %w", i+1, &domain.ParseError{Field: domain.ColumnDuration, Value: trip.Duration, Err: err})
		}

		start, err := resolvePoint(points, trip.StartStation, startCoord)
		if err != nil {
			return stats, fmt.Errorf("trip %d: station %q: %w", i+1, trip.StartStation, err)
		}
		end, err := resolvePoint(points, trip.EndStation, endCoord)
		if err != nil {
			return stats, fmt.Errorf("trip %d: station %q: %w", i+1, trip.EndStation, err)
		}

		dist := geospatial.Haversine(start.Lat, start.Lon, end.Lat, end.Lon, e.radius)
		mph := geospatial.Speed(dist, seconds)

		trip.Dist, trip.MPH = &dist, &mph
		stats.Resolved++
		if math.IsInf(mph, 0) || math.IsNaN(mph) {
			stats.NonFinite++
		}
	}

	return stats, nil
}

// resolvePoint parses a station coordinate once per pass.
func resolvePoint(cache map[string]domain.GeoPoint, id string, c domain.Coordinate) (domain.GeoPoint, error) {
	if p, ok := cache[id]; ok {
		return p, nil
	}
	p, err := c.Point()
	if err != nil {
		return domain.GeoPoint{}, err
	}
	cache[id] = p
	return p, nil
}
