package csvadapter

import (
	"context"
	"log/slog"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// TripFile implements ports.TripSource over a delimited trips file.
type TripFile struct {
	Path      string
	Delimiter rune
}

// NewTripFile creates a TripFile. A zero delimiter means comma.
func NewTripFile(path string, delimiter rune) *TripFile {
	if delimiter == 0 {
		delimiter = ','
	}
	return &TripFile{Path: path, Delimiter: delimiter}
}

// LoadTrips reads every trip in file order.
func (f *TripFile) LoadTrips(ctx context.Context) ([]domain.Trip, error) {
	table, err := ReadTableFile(ctx, f.Path, f.Delimiter)
	if err != nil {
		return nil, err
	}

	trips, err := TripsFromTable(f.Path, table)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "trips loaded", "path", f.Path, "count", len(trips))
	return trips, nil
}

// TripsFromTable maps table rows onto trips. The four trip columns must be
// present in the header; other columns are carried in Trip.Fields.
func TripsFromTable(source string, table *Table) ([]domain.Trip, error) {
	cols := indexColumns(table.Header)
	for _, name := range []string{
		domain.ColumnStartStation,
		domain.ColumnEndStation,
		domain.ColumnDuration,
		domain.ColumnStartDayName,
	} {
		if _, ok := cols[name]; !ok {
			return nil, &domain.MissingColumnError{Source: source, Column: name}
		}
	}

	trips := make([]domain.Trip, 0, len(table.Rows))
	for _, row := range table.Rows {
		trips = append(trips, domain.Trip{
			StartStation: row[domain.ColumnStartStation],
			EndStation:   row[domain.ColumnEndStation],
			Duration:     row[domain.ColumnDuration],
			StartDayName: row[domain.ColumnStartDayName],
			Fields:       row,
		})
	}
	return trips, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[col] = i
	}
	return m
}
