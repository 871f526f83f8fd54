package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

// Assessment is the result of one proximity query.
type Assessment struct {
	SnapshotID  string
	Location    domain.Geo
	ThresholdKM float64
	AssessedAt  time.Time

	// Alerts is ordered by ascending distance; equal distances keep the
	// incidents' original order.
	Alerts []domain.RiskAlert
}

// Safe reports whether no clustered incident is within the threshold.
func (a Assessment) Safe() bool { return len(a.Alerts) == 0 }

// Query returns every clustered incident strictly closer than thresholdKM to
// location. An incident exactly thresholdKM away does not alert. No alerts
// is a normal, safe result, not an error.
func Query(location domain.Geo, thresholdKM float64, idx *Index) (Assessment, error) {
	if err := location.Validate(); err != nil {
		return Assessment{}, err
	}
	if math.IsNaN(thresholdKM) || math.IsInf(thresholdKM, 0) || thresholdKM <= 0 {
		return Assessment{}, fmt.Errorf("%w: threshold_km must be a finite value > 0, got %v", domain.ErrInvalidParameter, thresholdKM)
	}
	if idx == nil {
		return Assessment{}, domain.ErrNotReady
	}

	var alerts []domain.RiskAlert
	for _, nb := range idx.searcher.Within(location, thresholdKM) {
		if nb.DistanceKM >= thresholdKM {
			continue
		}
		r := idx.entries[nb.Index]
		id, _ := r.Cluster.ID()
		alerts = append(alerts, domain.RiskAlert{
			CrimeType:  r.CrimeType,
			Severity:   r.Severity,
			DistanceKM: nb.DistanceKM,
			ClusterID:  id,
		})
	}
	// Within yields ascending store order, so a stable sort breaks distance
	// ties by insertion order.
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].DistanceKM < alerts[j].DistanceKM })

	return Assessment{
		SnapshotID:  idx.id,
		Location:    location,
		ThresholdKM: thresholdKM,
		AssessedAt:  domain.Now(),
		Alerts:      alerts,
	}, nil
}
