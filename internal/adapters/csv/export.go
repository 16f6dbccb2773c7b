package csvadapter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// Derived columns appended to the export, and the marker for absent values.
const (
	ColumnDist   = "dist"
	ColumnMPH    = "mph"
	AbsentMarker = "None"
)

// EnrichedWriter implements ports.TripExporter by writing the trips, with
// their derived columns, to a CSV file.
type EnrichedWriter struct {
	Path      string
	Delimiter rune
}

// NewEnrichedWriter creates an EnrichedWriter. A zero delimiter means comma.
func NewEnrichedWriter(path string, delimiter rune) *EnrichedWriter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &EnrichedWriter{Path: path, Delimiter: delimiter}
}

// ExportTrips writes one row per trip. The trip columns come first, followed
// by any other source columns in name order, then dist and mph.
func (w *EnrichedWriter) ExportTrips(ctx context.Context, trips []domain.Trip) error {
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(w.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", w.Path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = w.Delimiter

	columns := exportColumns(trips)
	if err := writer.Write(append(append([]string{}, columns...), ColumnDist, ColumnMPH)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range trips {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(exportRecord(&trips[i], columns)); err != nil {
			return fmt.Errorf("write trip %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.Path, err)
	}

	slog.InfoContext(ctx, "enriched trips written", "path", w.Path, "count", len(trips))
	return nil
}

func exportColumns(trips []domain.Trip) []string {
	columns := []string{
		domain.ColumnStartStation,
		domain.ColumnEndStation,
		domain.ColumnDuration,
		domain.ColumnStartDayName,
	}
	if len(trips) == 0 {
		return columns
	}

	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}
	var extra []string
	for name := range trips[0].Fields {
		if !seen[name] && name != ColumnDist && name != ColumnMPH {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func exportRecord(t *domain.Trip, columns []string) []string {
	record := make([]string, 0, len(columns)+2)
	for _, col := range columns {
		switch col {
		case domain.ColumnStartStation:
			record = append(record, t.StartStation)
		case domain.ColumnEndStation:
			record = append(record, t.EndStation)
		case domain.ColumnDuration:
			record = append(record, t.Duration)
		case domain.ColumnStartDayName:
			record = append(record, t.StartDayName)
		default:
			record = append(record, t.Fields[col])
		}
	}
	return append(record, formatOptional(t.Dist), formatOptional(t.MPH))
}

func formatOptional(v *float64) string {
	if v == nil {
		return AbsentMarker
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
