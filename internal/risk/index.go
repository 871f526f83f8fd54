// Package risk holds the published cluster snapshot and answers proximity
// queries against it.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/incident-risk-service/internal/cluster"
	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

// ClusterSummary describes one cluster in a snapshot.
type ClusterSummary struct {
	ID          int             `json:"id"`
	Size        int             `json:"size"`
	Centroid    domain.Geo      `json:"centroid"`
	MaxSeverity domain.Severity `json:"max_severity"`
}

// Index is an immutable snapshot of the clustered incidents from one
// clustering run. Noise incidents are not part of it. All methods are safe
// for concurrent use.
type Index struct {
	id        string
	builtAt   time.Time
	params    cluster.Params
	incidents int
	noise     int

	entries  []domain.IncidentRecord // clustered incidents in store order
	searcher spatial.Searcher
	clusters []ClusterSummary
}

// NewIndex builds a snapshot from labelled records. Every record must carry
// an assigned label; Noise records are dropped.
func NewIndex(records []domain.IncidentRecord, params cluster.Params, strategy spatial.Strategy) (*Index, error) {
	idx := &Index{
		id:        uuid.NewString(),
		builtAt:   domain.Now(),
		params:    params,
		incidents: len(records),
	}

	var locs []domain.Geo
	maxID := -1
	for i, r := range records {
		if !r.Cluster.Assigned() {
			return nil, fmt.Errorf("%w: incident %d has no cluster label", domain.ErrInvalidParameter, i)
		}
		id, ok := r.Cluster.ID()
		if !ok {
			idx.noise++
			continue
		}
		idx.entries = append(idx.entries, r)
		locs = append(locs, r.Location)
		maxID = max(maxID, id)
	}

	searcher, err := spatial.New(strategy, locs)
	if err != nil {
		return nil, err
	}
	idx.searcher = searcher
	idx.clusters = summarize(idx.entries, maxID+1)
	return idx, nil
}

// ID is the unique identifier of this snapshot.
func (x *Index) ID() string { return x.id }

// BuiltAt is when the snapshot was built.
func (x *Index) BuiltAt() time.Time { return x.builtAt }

// Params returns the clustering parameters the snapshot was built with.
func (x *Index) Params() cluster.Params { return x.params }

// Incidents is the number of incidents clustered, noise included.
func (x *Index) Incidents() int { return x.incidents }

// Clustered is the number of incidents held by the snapshot.
func (x *Index) Clustered() int { return len(x.entries) }

// Noise is the number of incidents labelled Noise.
func (x *Index) Noise() int { return x.noise }

// Clusters returns a copy of the per-cluster summaries, ordered by id.
// Ids with no members are omitted.
func (x *Index) Clusters() []ClusterSummary {
	return append([]ClusterSummary(nil), x.clusters...)
}

// summarize computes member counts, centroids and peak severity per cluster.
// Centroids average unit vectors so clusters straddling the antimeridian
// land in the right place.
func summarize(entries []domain.IncidentRecord, n int) []ClusterSummary {
	type acc struct {
		x, y, z float64
		size    int
		maxSev  domain.Severity
	}
	accs := make([]acc, n)
	for _, r := range entries {
		id, _ := r.Cluster.ID()
		lat := r.Location.Lat * math.Pi / 180
		lon := r.Location.Lon * math.Pi / 180
		a := &accs[id]
		a.x += math.Cos(lat) * math.Cos(lon)
		a.y += math.Cos(lat) * math.Sin(lon)
		a.z += math.Sin(lat)
		a.size++
		a.maxSev = max(a.maxSev, r.Severity)
	}

	out := make([]ClusterSummary, 0, n)
	for id, a := range accs {
		if a.size == 0 {
			continue
		}
		hyp := math.Hypot(a.x, a.y)
		out = append(out, ClusterSummary{
			ID:   id,
			Size: a.size,
			Centroid: domain.Geo{
				Lat: math.Atan2(a.z, hyp) * 180 / math.Pi,
				Lon: math.Atan2(a.y, a.x) * 180 / math.Pi,
			},
			MaxSeverity: a.maxSev,
		})
	}
	return out
}
