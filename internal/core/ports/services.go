package ports

import (
	"context"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// DistributionRenderer draws the distance and speed distributions.
type DistributionRenderer interface {
	RenderDistributions(ctx context.Context, d domain.Distributions) error
}

// WeekdayReporter presents the weekday report.
type WeekdayReporter interface {
	ReportWeekdays(ctx context.Context, r domain.WeekdayReport) error
}

// TripExporter writes enriched trips somewhere outside the process.
type TripExporter interface {
	ExportTrips(ctx context.Context, trips []domain.Trip) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, event *domain.AnalysisCompleted) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeAnalysisCompleted(ctx context.Context, handler func(ctx context.Context, event *domain.AnalysisCompleted) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
