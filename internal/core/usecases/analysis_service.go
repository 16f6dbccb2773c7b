package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/core/ports"
	"github.com/samirrijal/bluebikes/internal/pkg/metrics"
	"github.com/samirrijal/bluebikes/internal/pkg/telemetry"
)

// DefaultTargetStation is the destination counted by the weekday report.
const DefaultTargetStation = "Forsyth St at Huntington Ave"

// AnalysisOptions tunes a run.
type AnalysisOptions struct {
	TargetStation string
	EarthRadius   float64
}

// Outputs are the optional collaborators that receive a run's results.
// Nil fields are skipped.
type Outputs struct {
	Renderer  ports.DistributionRenderer
	Reporter  ports.WeekdayReporter
	Exporter  ports.TripExporter
	Publisher ports.EventPublisher
}

// AnalysisService runs the pipeline: load trips and stations, enrich trips
// with distance and speed, aggregate, then hand the results to the outputs.
type AnalysisService struct {
	trips    ports.TripSource
	stations ports.StationSource
	enricher *Enricher
	outputs  Outputs
	target   string
	now      func() time.Time
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(trips ports.TripSource, stations ports.StationSource, outputs Outputs, opts AnalysisOptions) *AnalysisService {
	target := opts.TargetStation
	if target == "" {
		target = DefaultTargetStation
	}
	return &AnalysisService{
		trips:    trips,
		stations: stations,
		enricher: NewEnricher(opts.EarthRadius),
		outputs:  outputs,
		target:   target,
		now:      time.Now,
	}
}

// TargetStation returns the station counted by the weekday report.
func (s *AnalysisService) TargetStation() string { return s.target }

// Run executes one full analysis. Any loading, parsing or output error is
// returned as is; publishing failures are only logged.
func (s *AnalysisService) Run(ctx context.Context) (*domain.Analysis, error) {
	runID := uuid.NewString()
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAnalysisRun)
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrRunID, runID),
		attribute.String(telemetry.AttrTargetStation, s.target),
	)

	analysis, err := s.run(ctx, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AnalysisRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.AnalysisRuns.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Int(telemetry.AttrTripsTotal, analysis.Stats.Total),
		attribute.Int(telemetry.AttrTripsResolved, analysis.Stats.Resolved),
		attribute.Int(telemetry.AttrStationsLoaded, len(analysis.Stations)),
	)
	return analysis, nil
}

func (s *AnalysisService) run(ctx context.Context, runID string) (*domain.Analysis, error) {
	log := slog.Default().With("run_id", runID)

	trips, err := s.loadTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	stations, err := s.loadStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	log.InfoContext(ctx, "inputs loaded", "trips", len(trips), "stations", len(stations))

	stats, err := s.enrich(ctx, trips, stations)
	if err != nil {
		return nil, fmt.Errorf("enrich trips: %w", err)
	}
	log.InfoContext(ctx, "trips enriched",
		"resolved", stats.Resolved,
		"unresolved", stats.Unresolved,
		"non_finite_speeds", stats.NonFinite,
	)

	analysis := &domain.Analysis{
		RunID:    runID,
		Trips:    trips,
		Stations: stations,
		Stats:    stats,
	}
	s.aggregate(ctx, analysis)

	if err := s.deliver(ctx, analysis); err != nil {
		return nil, err
	}

	analysis.CompletedAt = s.now()
	s.publish(ctx, log, analysis)
	return analysis, nil
}

func (s *AnalysisService) loadTrips(ctx context.Context) ([]domain.Trip, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanLoadTrips)
	defer span.End()
	defer metrics.ObserveStage("load_trips", time.Now())

	trips, err := s.trips.LoadTrips(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.TripsLoaded.Add(float64(len(trips)))
	return trips, nil
}

func (s *AnalysisService) loadStations(ctx context.Context) (domain.StationIndex, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanLoadStations)
	defer span.End()
	defer metrics.ObserveStage("load_stations", time.Now())

	stations, err := s.stations.LoadStations(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.StationsLoaded.Set(float64(len(stations)))
	return stations, nil
}

func (s *AnalysisService) enrich(ctx context.Context, trips []domain.Trip, stations domain.StationIndex) (domain.EnrichStats, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanEnrich)
	defer span.End()
	defer metrics.ObserveStage("enrich", time.Now())

	stats, err := s.enricher.Enrich(ctx, trips, stations)
	if err != nil {
		span.RecordError(err)
		return stats, err
	}
	metrics.TripsUnresolved.Add(float64(stats.Unresolved))
	return stats, nil
}

func (s *AnalysisService) aggregate(ctx context.Context, a *domain.Analysis) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanAggregate)
	defer span.End()
	defer metrics.ObserveStage("aggregate", time.Now())

	a.Distributions = ExtractDistributions(a.Trips)
	a.Weekdays = CountWeekdays(a.Trips, s.target)
}

// deliver hands the results to the renderer, reporter and exporter in turn.
func (s *AnalysisService) deliver(ctx context.Context, a *domain.Analysis) error {
	if s.outputs.Renderer != nil {
		if err := s.stage(ctx, telemetry.SpanRender, "render", func(ctx context.Context) error {
			return s.outputs.Renderer.RenderDistributions(ctx, a.Distributions)
		}); err != nil {
			return fmt.Errorf("render distributions: %w", err)
		}
	}
	if s.outputs.Reporter != nil {
		if err := s.stage(ctx, telemetry.SpanReport, "report", func(ctx context.Context) error {
			return s.outputs.Reporter.ReportWeekdays(ctx, a.Weekdays)
		}); err != nil {
			return fmt.Errorf("report weekdays: %w", err)
		}
	}
	if s.outputs.Exporter != nil {
		if err := s.stage(ctx, telemetry.SpanExport, "export", func(ctx context.Context) error {
			return s.outputs.Exporter.ExportTrips(ctx, a.Trips)
		}); err != nil {
			return fmt.Errorf("export trips: %w", err)
		}
	}
	return nil
}

func (s *AnalysisService) publish(ctx context.Context, log *slog.Logger, a *domain.Analysis) {
	if s.outputs.Publisher == nil {
		return
	}
	event := &domain.AnalysisCompleted{
		RunID:         a.RunID,
		CompletedAt:   a.CompletedAt,
		Stats:         a.Stats,
		TargetStation: a.Weekdays.Station,
		Weekdays:      a.Weekdays.Counts,
	}
	err := s.stage(ctx, telemetry.SpanPublishResult, "publish", func(ctx context.Context) error {
		return s.outputs.Publisher.PublishAnalysisCompleted(ctx, event)
	})
	if err != nil {
		log.WarnContext(ctx, "publish analysis event failed", "error", err)
	}
}

func (s *AnalysisService) stage(ctx context.Context, spanName, stage string, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, spanName)
	defer span.End()
	defer metrics.ObserveStage(stage, time.Now())

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
