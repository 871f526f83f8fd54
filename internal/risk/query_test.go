package risk

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-risk-service/internal/cluster"
	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

func TestQuery_Scenario(t *testing.T) {
	for _, strategy := range []spatial.Strategy{spatial.StrategyLinear, spatial.StrategyVPTree} {
		t.Run(string(strategy), func(t *testing.T) {
			idx := buildIndex(t, scenarioRecords(), scenarioParams, strategy)

			a, err := Query(domain.Geo{Lat: 10.000, Lon: 20.000}, 5, idx)
			require.NoError(t, err)
			require.Len(t, a.Alerts, 3)
			assert.False(t, a.Safe())
			assert.Equal(t, idx.ID(), a.SnapshotID)

			// Nearest first.
			assert.Equal(t, "Theft", a.Alerts[0].CrimeType)
			assert.Zero(t, a.Alerts[0].DistanceKM)
			assert.Equal(t, "Assault", a.Alerts[1].CrimeType)
			assert.Equal(t, domain.SeveritySevere, a.Alerts[1].Severity)
			assert.Equal(t, "Robbery", a.Alerts[2].CrimeType)
			for _, alert := range a.Alerts {
				assert.Equal(t, 0, alert.ClusterID)
				assert.NotEqual(t, "Fraud", alert.CrimeType, "noise must never alert")
			}

			safe, err := Query(domain.Geo{Lat: 50.0, Lon: 50.0}, 5, idx)
			require.NoError(t, err)
			assert.True(t, safe.Safe())
			assert.Empty(t, safe.Alerts)
		})
	}
}

func TestQuery_ThresholdIsStrict(t *testing.T) {
	idx := buildIndex(t, scenarioRecords(), scenarioParams, spatial.StrategyVPTree)

	// Due south of the southernmost clustered incident, so it is the
	// only one near the boundary.
	incident := domain.Geo{Lat: 10.000, Lon: 20.000}
	q := domain.Geo{Lat: 9.99, Lon: 20.000}
	threshold := domain.HaversineKM(q, incident)

	a, err := Query(q, threshold, idx)
	require.NoError(t, err)
	assert.True(t, a.Safe(), "incident exactly at the threshold must not alert")

	a, err = Query(q, math.Nextafter(threshold, math.Inf(1)), idx)
	require.NoError(t, err)
	require.Len(t, a.Alerts, 1)
	assert.Equal(t, "Theft", a.Alerts[0].CrimeType)
	assert.Equal(t, threshold, a.Alerts[0].DistanceKM)
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	p := domain.Geo{Lat: 35, Lon: 139}
	recs := []domain.IncidentRecord{
		{Location: p, CrimeType: "first", Severity: domain.SeverityLow},
		{Location: p, CrimeType: "second", Severity: domain.SeverityLow},
		{Location: p, CrimeType: "third", Severity: domain.SeverityLow},
	}
	idx := buildIndex(t, recs, scenarioParams, spatial.StrategyVPTree)

	a, err := Query(domain.Geo{Lat: 35.001, Lon: 139}, 1, idx)
	require.NoError(t, err)
	require.Len(t, a.Alerts, 3)
	assert.Equal(t, "first", a.Alerts[0].CrimeType)
	assert.Equal(t, "second", a.Alerts[1].CrimeType)
	assert.Equal(t, "third", a.Alerts[2].CrimeType)
}

func TestQuery_AcrossAntimeridian(t *testing.T) {
	recs := []domain.IncidentRecord{
		{Location: domain.Geo{Lat: 0, Lon: 179.999}, CrimeType: "east", Severity: domain.SeverityLow},
		{Location: domain.Geo{Lat: 0, Lon: 179.998}, CrimeType: "east2", Severity: domain.SeverityLow},
	}
	idx := buildIndex(t, recs, scenarioParams, spatial.StrategyVPTree)

	a, err := Query(domain.Geo{Lat: 0, Lon: -179.999}, 0.5, idx)
	require.NoError(t, err)
	require.Len(t, a.Alerts, 2)
	assert.Equal(t, "east", a.Alerts[0].CrimeType)
	assert.InDelta(t, 0.2224, a.Alerts[0].DistanceKM, 1e-3)
}

func TestQuery_InvalidArguments(t *testing.T) {
	idx := buildIndex(t, scenarioRecords(), scenarioParams, spatial.StrategyLinear)

	for _, loc := range []domain.Geo{{Lat: 90.5}, {Lon: -180.01}, {Lat: math.NaN()}} {
		_, err := Query(loc, 1, idx)
		assert.ErrorIs(t, err, domain.ErrInvalidCoordinate, "%v", loc)
	}

	for _, thr := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Query(domain.Geo{}, thr, idx)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter, "%v", thr)
	}

	_, err := Query(domain.Geo{}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestQuery_CoincidentIncidentsAllAlert(t *testing.T) {
	lats := []float64{10.003, 10.003, 10.003, 10.003, 10.000, 10.000, 10.000, 10.000, 10.002, 10.002, 10.002, 10.001, 10.001}
	records := make([]domain.IncidentRecord, len(lats))
	for i, lat := range lats {
		records[i] = domain.IncidentRecord{
			Location:  domain.Geo{Lat: lat, Lon: 20},
			CrimeType: fmt.Sprintf("crime-%d", i),
			Severity:  domain.SeverityLow,
		}
	}
	params := cluster.Params{EpsilonKM: 0, MinSamples: 2}

	for range 50 {
		idx := buildIndex(t, records, params, spatial.StrategyVPTree)
		got, err := Query(domain.Geo{Lat: 10.003, Lon: 20}, 0.01, idx)
		require.NoError(t, err)

		var crimes []string
		for _, a := range got.Alerts {
			crimes = append(crimes, a.CrimeType)
		}
		require.Equal(t, []string{"crime-0", "crime-1", "crime-2", "crime-3"}, crimes)
	}
}
