// Package sqlite reads incident rows from a SQLite database holding an
// "incidents" table with latitude, longitude, crime_type and severity columns.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

// Values are read as text so the same parser validates CSV and SQLite rows.
const selectIncidents = `
SELECT CAST(latitude AS TEXT), CAST(longitude AS TEXT), crime_type, severity
FROM incidents
ORDER BY rowid`

// Source reads incidents from a SQLite file. The database is opened per
// Extract call and closed afterwards.
// It implements pipeline.Extractor.
type Source struct {
	path string
}

// NewSource creates a SQLite incident source for the database at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Extract reads every row of the incidents table in rowid order.
func (s *Source) Extract(ctx context.Context) ([]domain.RawIncident, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open incidents db: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectIncidents)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.RawIncident
	n := 0
	for rows.Next() {
		n++
		var lat, lon, crimeType, severity sql.NullString
		if err := rows.Scan(&lat, &lon, &crimeType, &severity); err != nil {
			return nil, fmt.Errorf("scan incident row %d: %w", n, err)
		}
		out = append(out, domain.RawIncident{
			Latitude:  lat.String,
			Longitude: lon.String,
			CrimeType: crimeType.String,
			Severity:  severity.String,
			Line:      n,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return out, nil
}
