// Package bootstrap wires configured adapters into the analysis pipeline.
// It is shared by the CLI and the API server.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	csvadapter "github.com/samirrijal/bluebikes/internal/adapters/csv"
	natsadapter "github.com/samirrijal/bluebikes/internal/adapters/nats"
	"github.com/samirrijal/bluebikes/internal/adapters/postgres"
	"github.com/samirrijal/bluebikes/internal/adapters/render"
	"github.com/samirrijal/bluebikes/internal/core/ports"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
	"github.com/samirrijal/bluebikes/internal/pkg/config"
)

// Pipeline holds the wired pipeline and the resources it opened.
type Pipeline struct {
	Service   *usecases.AnalysisService
	DB        *postgres.DB
	Publisher *natsadapter.Publisher
}

// Close releases every resource the pipeline opened.
func (p *Pipeline) Close() {
	if p.Publisher != nil {
		p.Publisher.Close()
	}
	if p.DB != nil {
		p.DB.Close()
	}
}

// Options selects which outputs the pipeline drives.
type Options struct {
	Report io.Writer // nil disables the printed weekday report
	Charts bool
	Export bool
	// Publish enables the NATS publisher when nats.url is set. A broker that
	// cannot be reached is logged and skipped.
	Publish bool
}

// ServerOptions are the pipeline options of the API server. The server only
// consumes analysis events: its runs render nothing and publish nothing.
func ServerOptions() Options {
	return Options{}
}

// FollowAnalyses reloads reports each time sub delivers a completed run that
// reports is not already serving.
func FollowAnalyses(ctx context.Context, sub ports.EventSubscriber, reports *usecases.ReportService) error {
	return sub.SubscribeAnalysisCompleted(ctx, reports.OnAnalysisCompleted)
}

// NewPipeline builds the analysis service from cfg.
func NewPipeline(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	p := &Pipeline{}

	if cfg.UsesDatabase() {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		p.DB = db
	}

	trips, stations := Sources(cfg, p.DB)

	var out usecases.Outputs
	if opts.Charts {
		r := render.NewHistogramRenderer(cfg.Output.Dir, cfg.Analysis.HistogramBins)
		r.DistancesFile = cfg.Output.DistancesChart
		r.SpeedsFile = cfg.Output.SpeedsChart
		out.Renderer = r
	}
	if opts.Report != nil {
		out.Reporter = render.NewTextReporter(opts.Report)
	}
	if opts.Export && cfg.Output.EnrichedCSV != "" {
		out.Exporter = csvadapter.NewEnrichedWriter(exportPath(cfg.Output), cfg.Input.DelimiterRune())
	}
	if opts.Publish && cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, events disabled", "error", err)
		} else {
			p.Publisher = pub
			out.Publisher = pub
		}
	}

	p.Service = usecases.NewAnalysisService(trips, stations, out, usecases.AnalysisOptions{
		TargetStation: cfg.Analysis.TargetStation,
		EarthRadius:   cfg.Analysis.EarthRadius,
	})
	return p, nil
}

// Sources picks the trip and station sources named by the input config.
// db must be non-nil when either source is postgres.
func Sources(cfg *config.Config, db *postgres.DB) (ports.TripSource, ports.StationSource) {
	delim := cfg.Input.DelimiterRune()

	var trips ports.TripSource = csvadapter.NewTripFile(cfg.Input.TripsPath, delim)
	if cfg.Input.TripSource == config.SourcePostgres {
		trips = postgres.NewTripRepo(db)
	}

	var stations ports.StationSource = csvadapter.NewStationFile(cfg.Input.StationsPath, delim)
	if cfg.Input.StationSource == config.SourcePostgres {
		stations = postgres.NewStationRepo(db)
	}
	return trips, stations
}

// exportPath resolves a relative export file against the output directory.
func exportPath(out config.OutputConfig) string {
	if filepath.IsAbs(out.EnrichedCSV) {
		return out.EnrichedCSV
	}
	return filepath.Join(out.Dir, out.EnrichedCSV)
}
