// Package csvfile reads incident rows from a crime report CSV export.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

// Column headers used by the export. Every other column is ignored.
const (
	ColLatitude  = "Latitude"
	ColLongitude = "Longitude"
	ColCrimeType = "Crime_Type"
	ColSeverity  = "Severity"
)

// Source reads incidents from a CSV file. The file is re-read on every
// Extract so a rebuild picks up a replaced export.
// It implements pipeline.Extractor.
type Source struct {
	path string
}

// NewSource creates a CSV incident source for path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Extract reads every data row from the file.
func (s *Source) Extract(ctx context.Context) ([]domain.RawIncident, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open incidents csv: %w", err)
	}
	defer f.Close()

	return ReadIncidents(ctx, f)
}

// ReadIncidents parses a CSV stream with a header row. Column lookup is by
// header name, case-insensitive, so column order does not matter.
func ReadIncidents(ctx context.Context, r io.Reader) ([]domain.RawIncident, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("incidents csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("incidents csv: read header: %w", err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.RawIncident //nolint:prealloc // size depends on file contents
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("incidents csv: line %d: %w", line, err)
		}
		if line%1000 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		rows = append(rows, domain.RawIncident{
			Latitude:  rec[cols[ColLatitude]],
			Longitude: rec[cols[ColLongitude]],
			CrimeType: rec[cols[ColCrimeType]],
			Severity:  rec[cols[ColSeverity]],
			Line:      line,
		})
	}
	return rows, nil
}

func locateColumns(header []string) (map[string]int, error) {
	want := []string{ColLatitude, ColLongitude, ColCrimeType, ColSeverity}
	cols := make(map[string]int, len(want))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		for _, w := range want {
			if strings.EqualFold(h, w) {
				cols[w] = i
			}
		}
	}

	var missing []string
	for _, w := range want {
		if _, ok := cols[w]; !ok {
			missing = append(missing, w)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("incidents csv: missing columns %s", strings.Join(missing, ", "))
	}
	return cols, nil
}
