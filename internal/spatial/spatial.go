// Package spatial answers fixed-radius range queries over geographic points
// under the great-circle metric. Clustering and risk queries both go through
// a Searcher, so the search strategy can change without changing results.
package spatial

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

// Neighbor is an indexed point found by a range query.
type Neighbor struct {
	Index      int     // position of the point in the slice the searcher was built from
	DistanceKM float64 // domain.HaversineKM(query, point)
}

// Searcher finds indexed points within a great-circle radius.
type Searcher interface {
	// Within returns every point p with HaversineKM(q, p) <= radiusKM,
	// ordered by ascending Index.
	Within(q domain.Geo, radiusKM float64) []Neighbor

	// Len returns the number of indexed points.
	Len() int
}

// Strategy names a Searcher implementation.
type Strategy string

const (
	StrategyLinear Strategy = "linear"
	StrategyVPTree Strategy = "vptree"
)

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLinear, StrategyVPTree:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown spatial index strategy %q", s)
	}
}

// New builds a Searcher over points using the given strategy.
func New(strategy Strategy, points []domain.Geo) (Searcher, error) {
	switch strategy {
	case StrategyLinear:
		return NewLinear(points), nil
	case StrategyVPTree:
		return NewVPTree(points)
	default:
		return nil, fmt.Errorf("unknown spatial index strategy %q", strategy)
	}
}

// Linear scans every point on each query. O(n) per query, no build cost.
type Linear struct {
	points []domain.Geo
}

// NewLinear creates a linear searcher. The slice is copied.
func NewLinear(points []domain.Geo) *Linear {
	return &Linear{points: append([]domain.Geo(nil), points...)}
}

func (l *Linear) Within(q domain.Geo, radiusKM float64) []Neighbor {
	var out []Neighbor
	for i, p := range l.points {
		if d := domain.HaversineKM(q, p); d <= radiusKM {
			out = append(out, Neighbor{Index: i, DistanceKM: d})
		}
	}
	return out
}

func (l *Linear) Len() int { return len(l.points) }

func sortByIndex(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].Index < ns[j].Index })
}
