// Package render draws analysis results: PDF histograms through gonum/plot
// and the plain-text weekday report.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// Default chart file names and bucket count.
const (
	DefaultDistancesFile = "distances.pdf"
	DefaultSpeedsFile    = "speeds.pdf"
	DefaultBins          = 100
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// HistogramRenderer writes one histogram chart per distribution into Dir.
// The file extension picks the format (pdf, png, svg, ...).
type HistogramRenderer struct {
	Dir           string
	DistancesFile string
	SpeedsFile    string
	Bins          int
}

// NewHistogramRenderer creates a renderer with the default file names.
func NewHistogramRenderer(dir string, bins int) *HistogramRenderer {
	if bins <= 0 {
		bins = DefaultBins
	}
	return &HistogramRenderer{
		Dir:           dir,
		DistancesFile: DefaultDistancesFile,
		SpeedsFile:    DefaultSpeedsFile,
		Bins:          bins,
	}
}

// RenderDistributions saves the distance and speed charts.
func (r *HistogramRenderer) RenderDistributions(ctx context.Context, d domain.Distributions) error {
	if r.Dir != "" {
		if err := os.MkdirAll(r.Dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	charts := []struct {
		file   string
		title  string
		xLabel string
		values []float64
	}{
		{r.DistancesFile, "Distribution of Trip Distances", "Trip Distances (miles)", d.Distances},
		{r.SpeedsFile, "Distribution of Trip Speeds", "Trip Speeds (mph)", d.Speeds},
	}

	for _, c := range charts {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(r.Dir, c.file)
		if err := r.save(path, c.title, c.xLabel, c.values); err != nil {
			return fmt.Errorf("render %s: %w", path, err)
		}
		slog.Debug("chart written", "path", path, "values", len(c.values))
	}
	return nil
}

func (r *HistogramRenderer) save(path, title, xLabel string, values []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Frequency"

	finite := finiteValues(values)
	if skipped := len(values) - len(finite); skipped > 0 {
		slog.Warn("non-finite values left out of chart", "chart", title, "skipped", skipped)
	}

	if len(finite) > 0 {
		hist, err := plotter.NewHist(finite, r.Bins)
		if err != nil {
			return err
		}
		p.Add(hist)
	}

	return p.Save(chartWidth, chartHeight, path)
}

func finiteValues(values []float64) plotter.Values {
	out := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
