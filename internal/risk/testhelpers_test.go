package risk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-risk-service/internal/cluster"
	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

var scenarioParams = cluster.Params{EpsilonKM: 1, MinSamples: 2}

func scenarioRecords() []domain.IncidentRecord {
	return []domain.IncidentRecord{
		{Location: domain.Geo{Lat: 10.000, Lon: 20.000}, CrimeType: "Theft", Severity: domain.SeverityLow},
		{Location: domain.Geo{Lat: 10.001, Lon: 20.001}, CrimeType: "Assault", Severity: domain.SeveritySevere},
		{Location: domain.Geo{Lat: 10.002, Lon: 20.002}, CrimeType: "Robbery", Severity: domain.SeverityModerate},
		{Location: domain.Geo{Lat: 50.0, Lon: 50.0}, CrimeType: "Fraud", Severity: domain.SeverityLow},
	}
}

// buildIndex clusters records and builds a snapshot from them.
func buildIndex(t *testing.T, records []domain.IncidentRecord, params cluster.Params, strategy spatial.Strategy) *Index {
	t.Helper()
	store, err := domain.NewIncidentStore(records)
	require.NoError(t, err)
	c, err := cluster.NewClusterer(params, strategy)
	require.NoError(t, err)
	labelled, _, err := c.LabelStore(store)
	require.NoError(t, err)
	idx, err := NewIndex(labelled, params, strategy)
	require.NoError(t, err)
	return idx
}
