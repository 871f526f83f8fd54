package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

const sampleCSV = `Date,Time,Latitude,Longitude,Crime_Type,Severity,Victim_Age,Arrest_Made
2024-01-01,10:00,10.000,20.000,Theft,Low,34,Yes
2024-01-02,11:30,10.001,20.001,Assault,Severe,22,No
2024-01-03,23:15,10.002,20.002,Robbery,Moderate,41,No
`

func TestReadIncidents(t *testing.T) {
	rows, err := ReadIncidents(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, domain.RawIncident{
		Latitude:  "10.001",
		Longitude: "20.001",
		CrimeType: "Assault",
		Severity:  "Severe",
		Line:      3,
	}, rows[1])
	assert.Equal(t, 2, rows[0].Line)
}

func TestReadIncidents_ColumnOrderAndCase(t *testing.T) {
	in := "\ufeffseverity,crime_type,LONGITUDE,latitude\nLow,Fraud,50,49\n"
	rows, err := ReadIncidents(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "49", rows[0].Latitude)
	assert.Equal(t, "50", rows[0].Longitude)
	assert.Equal(t, "Fraud", rows[0].CrimeType)
	assert.Equal(t, "Low", rows[0].Severity)
}

func TestReadIncidents_MissingColumns(t *testing.T) {
	_, err := ReadIncidents(context.Background(), strings.NewReader("Latitude,Longitude\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Crime_Type")
	assert.Contains(t, err.Error(), "Severity")
}

func TestReadIncidents_Empty(t *testing.T) {
	_, err := ReadIncidents(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")

	rows, err := ReadIncidents(context.Background(), strings.NewReader("Latitude,Longitude,Crime_Type,Severity\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadIncidents_RaggedRow(t *testing.T) {
	in := "Latitude,Longitude,Crime_Type,Severity\n1,2,Theft\n"
	_, err := ReadIncidents(context.Background(), strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestSource_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crime_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	rows, err := NewSource(path).Extract(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = NewSource(filepath.Join(t.TempDir(), "missing.csv")).Extract(context.Background())
	assert.Error(t, err)
}
