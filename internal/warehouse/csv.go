package warehouse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads an exported result set (header row + data rows) from disk.
// Empty cells become nil so they behave like SQL NULLs downstream.
type CSVSource struct {
	path string
}

// NewCSVSource returns a source reading path.
func NewCSVSource(path string) *CSVSource { return &CSVSource{path: path} }

// Identity implements Source.
func (s *CSVSource) Identity() string { return "csv|" + s.path }

// FetchReviewsWithShipping implements Source.
func (s *CSVSource) FetchReviewsWithShipping(_ context.Context) ([]RawRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &ConnectionError{Driver: DriverCSV, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = sniffDelimiter(s.path)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &QueryError{Err: fmt.Errorf("read header: %w", err)}
	}
	names := make([]string, len(header))
	for i, h := range header {
		// strip a UTF-8 BOM left by spreadsheet exports
		names[i] = CanonicalColumn(strings.TrimPrefix(h, "\ufeff"))
	}

	var out []RawRow
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &QueryError{Err: fmt.Errorf("read row %d: %w", len(out)+1, err)}
		}
		row := make(RawRow, len(names))
		for i, name := range names {
			if i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
				row[name] = nil
				continue
			}
			row[name] = rec[i]
		}
		out = append(out, row)
	}
	return out, nil
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
