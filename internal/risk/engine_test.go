package risk

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

func TestEngine_NotReadyUntilPublished(t *testing.T) {
	e := NewEngine()
	assert.False(t, e.Ready())
	require.ErrorIs(t, e.CheckReadiness(context.Background()), domain.ErrNotReady)

	_, err := e.Current()
	require.ErrorIs(t, err, domain.ErrNotReady)

	_, err = e.Assess(domain.Geo{Lat: 10, Lon: 20}, 5)
	require.ErrorIs(t, err, domain.ErrNotReady)

	// Bad input is still reported as bad input.
	_, err = e.Assess(domain.Geo{Lat: 100}, 5)
	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)

	idx := buildIndex(t, scenarioRecords(), scenarioParams, spatial.StrategyVPTree)
	e.Publish(idx)

	assert.True(t, e.Ready())
	require.NoError(t, e.CheckReadiness(context.Background()))
	cur, err := e.Current()
	require.NoError(t, err)
	assert.Same(t, idx, cur)

	a, err := e.Assess(domain.Geo{Lat: 10, Lon: 20}, 5)
	require.NoError(t, err)
	assert.Len(t, a.Alerts, 3)
}

func TestEngine_PublishNilKeepsCurrent(t *testing.T) {
	e := NewEngine()
	idx := buildIndex(t, scenarioRecords(), scenarioParams, spatial.StrategyLinear)
	e.Publish(idx)
	e.Publish(nil)

	cur, err := e.Current()
	require.NoError(t, err)
	assert.Same(t, idx, cur)
}

func TestEngine_PublishReplacesSnapshot(t *testing.T) {
	e := NewEngine()
	first := buildIndex(t, scenarioRecords(), scenarioParams, spatial.StrategyVPTree)
	e.Publish(first)

	recs := append(scenarioRecords(),
		domain.IncidentRecord{Location: domain.Geo{Lat: 50.0001, Lon: 50.0001}, CrimeType: "Arson", Severity: domain.SeveritySevere},
	)
	second := buildIndex(t, recs, scenarioParams, spatial.StrategyVPTree)
	e.Publish(second)

	a, err := e.Assess(domain.Geo{Lat: 50, Lon: 50}, 5)
	require.NoError(t, err)
	assert.Equal(t, second.ID(), a.SnapshotID)
	require.Len(t, a.Alerts, 2)
	assert.Equal(t, 1, a.Alerts[0].ClusterID)

	// The old snapshot is untouched.
	old, err := Query(domain.Geo{Lat: 50, Lon: 50}, 5, first)
	require.NoError(t, err)
	assert.True(t, old.Safe())
}

// Readers racing a publisher only ever see one complete snapshot.
func TestEngine_ConcurrentQueriesDuringPublish(t *testing.T) {
	e := NewEngine()
	small := buildIndex(t, scenarioRecords(), scenarioParams, spatial.StrategyVPTree)
	recs := append(scenarioRecords(),
		domain.IncidentRecord{Location: domain.Geo{Lat: 10.0005, Lon: 20.0005}, CrimeType: "Vandalism", Severity: domain.SeverityLow},
	)
	large := buildIndex(t, recs, scenarioParams, spatial.StrategyVPTree)
	e.Publish(small)

	want := map[string]int{small.ID(): 3, large.ID(): 4}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				a, err := e.Assess(domain.Geo{Lat: 10, Lon: 20}, 5)
				if err != nil {
					errs <- err.Error()
					return
				}
				if n := want[a.SnapshotID]; n != len(a.Alerts) {
					errs <- "partial snapshot observed"
					return
				}
			}
		}()
	}
	for i := range 100 {
		if i%2 == 0 {
			e.Publish(large)
		} else {
			e.Publish(small)
		}
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
