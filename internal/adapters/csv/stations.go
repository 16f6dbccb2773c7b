package csvadapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// Station file columns, by position.
const (
	stationColID = iota
	stationColLat
	stationColLon
	stationMinFields
)

// StationFile implements ports.StationSource over a delimited stations file.
// Columns are positional: id, latitude, longitude. The header is skipped.
type StationFile struct {
	Path      string
	Delimiter rune
}

// NewStationFile creates a StationFile. A zero delimiter means comma.
func NewStationFile(path string, delimiter rune) *StationFile {
	if delimiter == 0 {
		delimiter = ','
	}
	return &StationFile{Path: path, Delimiter: delimiter}
}

// LoadStations builds the station index. A later row for the same id
// replaces an earlier one.
func (f *StationFile) LoadStations(ctx context.Context) (domain.StationIndex, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer file.Close()

	index := make(domain.StationIndex)
	duplicates := 0
	err = ForEachRecord(ctx, file, f.Path, f.Delimiter, func(line int, record []string) error {
		if len(record) < stationMinFields {
			return &domain.MalformedRowError{Source: f.Path, Line: line, Want: stationMinFields, Got: len(record)}
		}
		id := strings.TrimSpace(record[stationColID])
		if _, ok := index[id]; ok {
			duplicates++
		}
		index[id] = domain.Coordinate{
			Lat: strings.TrimSpace(record[stationColLat]),
			Lon: strings.TrimSpace(record[stationColLon]),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if duplicates > 0 {
		slog.WarnContext(ctx, "duplicate station ids, last row kept", "path", f.Path, "duplicates", duplicates)
	}
	slog.DebugContext(ctx, "stations loaded", "path", f.Path, "count", len(index))
	return index, nil
}
