package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/core/ports"
	"github.com/samirrijal/bluebikes/internal/pkg/metrics"
)

// ErrNoAnalysis is returned by queries made before the first run finished.
var ErrNoAnalysis = errors.New("no analysis available")

// ErrUnknownMetric is returned for histogram requests on an unknown metric.
var ErrUnknownMetric = errors.New("unknown metric")

// ErrInvalidBins is returned for histogram requests with a bin count outside
// 1..MaxHistogramBins.
var ErrInvalidBins = errors.New("invalid bin count")

// ErrReloadInProgress is returned when Reload is called while another reload
// is still running.
var ErrReloadInProgress = errors.New("reload already in progress")

// Query limits shared by every caller of the report service.
const (
	// MaxTripsPage caps the number of trips returned by one Trips call.
	MaxTripsPage = 500
	// MaxHistogramBins caps the bucket count of one Histogram call.
	MaxHistogramBins = 1000
)

// Summary describes the analysis currently being served.
type Summary struct {
	RunID         string               `json:"run_id"`
	CompletedAt   string               `json:"completed_at"`
	Stats         domain.EnrichStats   `json:"stats"`
	Stations      int                  `json:"stations"`
	TargetStation string               `json:"target_station"`
	Weekdays      domain.WeekdayReport `json:"weekdays"`
}

// TripFilter narrows a Trips query. A nil Resolved returns every trip.
type TripFilter struct {
	Offset   int
	Limit    int
	Resolved *bool
}

// TripPage is one page of trips plus the size of the filtered set.
type TripPage struct {
	Trips []domain.Trip `json:"trips"`
	Total int           `json:"total"`
}

// Loader produces a fresh analysis, usually AnalysisService.Run.
type Loader func(ctx context.Context) (*domain.Analysis, error)

// ReportService answers queries against the most recent analysis.
type ReportService struct {
	mu       sync.RWMutex
	reload   sync.Mutex
	current  *domain.Analysis
	target   string
	cache    ports.CacheService
	load     Loader
	cacheTTL int
}

// NewReportService creates a new ReportService. cache and load may be nil.
func NewReportService(target string, cache ports.CacheService, load Loader) *ReportService {
	if target == "" {
		target = DefaultTargetStation
	}
	return &ReportService{target: target, cache: cache, load: load, cacheTTL: 600}
}

// Replace swaps in a finished analysis.
func (s *ReportService) Replace(a *domain.Analysis) {
	s.mu.Lock()
	s.current = a
	s.mu.Unlock()
}

// Current returns the analysis being served, or nil.
func (s *ReportService) Current() *domain.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Ready reports whether an analysis has been loaded.
func (s *ReportService) Ready() bool {
	return s.Current() != nil
}

// Reload runs the loader and swaps in its result. The previous analysis is
// kept when the loader fails.
func (s *ReportService) Reload(ctx context.Context) (*domain.Analysis, error) {
	if s.load == nil {
		return nil, errors.New("reload not configured")
	}
	if !s.reload.TryLock() {
		return nil, ErrReloadInProgress
	}
	defer s.reload.Unlock()

	a, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.Replace(a)
	return a, nil
}

// OnAnalysisCompleted reloads when another process reports a run other than
// the one being served. An event that arrives while a reload is running is
// absorbed by that reload.
func (s *ReportService) OnAnalysisCompleted(ctx context.Context, event *domain.AnalysisCompleted) error {
	if current := s.Current(); current != nil && current.RunID == event.RunID {
		return nil
	}
	slog.InfoContext(ctx, "analysis completed elsewhere, reloading", "run_id", event.RunID)

	_, err := s.Reload(ctx)
	if errors.Is(err, ErrReloadInProgress) {
		return nil
	}
	return err
}

// Summary returns the run statistics of the current analysis.
func (s *ReportService) Summary() (*Summary, error) {
	a := s.Current()
	if a == nil {
		return nil, ErrNoAnalysis
	}
	return &Summary{
		RunID:         a.RunID,
		CompletedAt:   a.CompletedAt.UTC().Format(time.RFC3339),
		Stats:         a.Stats,
		Stations:      len(a.Stations),
		TargetStation: a.Weekdays.Station,
		Weekdays:      a.Weekdays,
	}, nil
}

// Weekdays counts trips ending at station by start weekday. An empty station
// selects the configured target, whose report was computed during the run.
func (s *ReportService) Weekdays(ctx context.Context, station string) (domain.WeekdayReport, error) {
	a := s.Current()
	if a == nil {
		return domain.WeekdayReport{}, ErrNoAnalysis
	}
	if station == "" || station == a.Weekdays.Station {
		return a.Weekdays, nil
	}

	cacheKey := fmt.Sprintf("report:weekdays:%s:%s", a.RunID, station)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var report domain.WeekdayReport
			if err := json.Unmarshal(data, &report); err == nil {
				metrics.CacheHits.WithLabelValues("weekdays").Inc()
				return report, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("weekdays").Inc()
	}

	report := CountWeekdays(a.Trips, station)

	if s.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return report, nil
}

// Histogram buckets the distance or speed distribution of the current run.
// A zero bins selects DefaultHistogramBins.
func (s *ReportService) Histogram(ctx context.Context, metric string, bins int) (domain.Histogram, error) {
	if bins == 0 {
		bins = DefaultHistogramBins
	}
	if bins < 0 || bins > MaxHistogramBins {
		return domain.Histogram{}, fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidBins, bins, MaxHistogramBins)
	}
	a := s.Current()
	if a == nil {
		return domain.Histogram{}, ErrNoAnalysis
	}

	var values []float64
	switch metric {
	case MetricDistance:
		values = a.Distributions.Distances
	case MetricSpeed:
		values = a.Distributions.Speeds
	default:
		return domain.Histogram{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	cacheKey := fmt.Sprintf("report:histogram:%s:%s:%d", a.RunID, metric, bins)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var h domain.Histogram
			if err := json.Unmarshal(data, &h); err == nil {
				metrics.CacheHits.WithLabelValues("histogram").Inc()
				return h, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("histogram").Inc()
	}

	h := Bucketize(metric, values, bins)

	if s.cache != nil {
		if data, err := json.Marshal(h); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return h, nil
}

// Trips returns a page of enriched trips in input order.
func (s *ReportService) Trips(f TripFilter) (*TripPage, error) {
	a := s.Current()
	if a == nil {
		return nil, ErrNoAnalysis
	}
	if f.Limit <= 0 || f.Limit > MaxTripsPage {
		f.Limit = MaxTripsPage
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	matched := a.Trips
	if f.Resolved != nil {
		matched = make([]domain.Trip, 0, len(a.Trips))
		for i := range a.Trips {
			if a.Trips[i].Resolved() == *f.Resolved {
				matched = append(matched, a.Trips[i])
			}
		}
	}

	page := &TripPage{Total: len(matched), Trips: []domain.Trip{}}
	if f.Offset >= len(matched) {
		return page, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Trips = matched[f.Offset:end]
	return page, nil
}

// Station returns a single station of the current index.
func (s *ReportService) Station(id string) (*domain.Station, error) {
	a := s.Current()
	if a == nil {
		return nil, ErrNoAnalysis
	}
	c, ok := a.Stations.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("station %q: %w", id, domain.ErrNotFound)
	}
	return &domain.Station{ID: id, Location: c}, nil
}

// Stations lists the station index sorted by id.
func (s *ReportService) Stations() ([]domain.Station, error) {
	a := s.Current()
	if a == nil {
		return nil, ErrNoAnalysis
	}
	out := make([]domain.Station, 0, len(a.Stations))
	for id, c := range a.Stations {
		out = append(out, domain.Station{ID: id, Location: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
