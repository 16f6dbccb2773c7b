package csvadapter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// Row is one data record keyed by header name.
type Row map[string]string

// Table is a parsed delimited file.
type Table struct {
	Header []string
	Rows   []Row
}

// ReadTableFile opens path and parses it with ReadTable.
func ReadTableFile(ctx context.Context, path string, delimiter rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadTable(ctx, f, path, delimiter)
}

// ReadTable parses delimited text whose first record is the header. Every
// following record must have exactly as many fields as the header; any other
// count is a *domain.MalformedRowError. Values are kept as raw strings.
func ReadTable(ctx context.Context, r io.Reader, source string, delimiter rune) (*Table, error) {
	reader := newReader(r, delimiter)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file, header expected", source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}
	header = normalizeHeader(header)

	table := &Table{Header: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}

		line, _ := reader.FieldPos(0)
		if len(record) != len(header) {
			return nil, &domain.MalformedRowError{Source: source, Line: line, Want: len(header), Got: len(record)}
		}

		row := make(Row, len(header))
		for i, col := range header {
			row[col] = strings.TrimSpace(record[i])
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ForEachRecord streams raw records after the header, for positional readers.
func ForEachRecord(ctx context.Context, r io.Reader, source string, delimiter rune, fn func(line int, record []string) error) error {
	reader := newReader(r, delimiter)

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty file, header expected", source)
		}
		return fmt.Errorf("%s: read header: %w", source, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, record); err != nil {
			return err
		}
	}
}

func newReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // field counts are checked against the header
	return reader
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		out[i] = strings.TrimSpace(col)
	}
	return out
}
