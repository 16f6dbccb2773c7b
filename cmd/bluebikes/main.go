// Command bluebikes computes trip distances and speeds from a trips file and a
// stations file, saves their histograms and prints how many trips ended at the
// target station on each weekday.
//
// Usage:
//
//	bluebikes [trips.csv [stations.csv]]
//
// Everything else is configured through config.yaml or BLUEBIKES_* variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samirrijal/bluebikes/internal/bootstrap"
	"github.com/samirrijal/bluebikes/internal/pkg/config"
	"github.com/samirrijal/bluebikes/internal/pkg/logging"
	"github.com/samirrijal/bluebikes/internal/pkg/telemetry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("usage: bluebikes [trips.csv [stations.csv]]")
	}

	cfg, err := config.Load("bluebikes")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(args) > 0 {
		cfg.Input.TripsPath = args[0]
	}
	if len(args) > 1 {
		cfg.Input.StationsPath = args[1]
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, bootstrap.Options{
		Report:  os.Stdout,
		Charts:  cfg.Output.Charts,
		Export:  true,
		Publish: true,
	})
	if err != nil {
		return err
	}
	defer pipeline.Close()

	start := time.Now()
	analysis, err := pipeline.Service.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("analysis complete",
		"run_id", analysis.RunID,
		"trips", analysis.Stats.Total,
		"resolved", analysis.Stats.Resolved,
		"unresolved", analysis.Stats.Unresolved,
		"non_finite_speeds", analysis.Stats.NonFinite,
		"stations", len(analysis.Stations),
		"elapsed", time.Since(start).String(),
	)
	return nil
}
