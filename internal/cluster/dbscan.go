// Package cluster groups incident locations with DBSCAN under the
// great-circle metric.
package cluster

import (
	"fmt"
	"math"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

// Params holds the DBSCAN tuning parameters.
type Params struct {
	EpsilonKM  float64 // neighbourhood radius in kilometres; 0 groups only coincident points
	MinSamples int     // neighbourhood size, self included, that makes a point core
}

// Validate reports ErrInvalidParameter for a negative or non-finite
// epsilon or a min-samples below 1.
func (p Params) Validate() error {
	if math.IsNaN(p.EpsilonKM) || math.IsInf(p.EpsilonKM, 0) || p.EpsilonKM < 0 {
		return fmt.Errorf("%w: epsilon_km must be a finite value >= 0, got %v", domain.ErrInvalidParameter, p.EpsilonKM)
	}
	if p.MinSamples < 1 {
		return fmt.Errorf("%w: min_samples must be >= 1, got %d", domain.ErrInvalidParameter, p.MinSamples)
	}
	return nil
}

// Result is the outcome of one clustering run.
type Result struct {
	// Labels holds one label per input point, in input order.
	Labels []domain.ClusterLabel
	// Core flags the points whose neighbourhood reached MinSamples.
	Core []bool
	// Clusters is the number of distinct clusters; ids run 0..Clusters-1.
	Clusters int
}

// NoiseCount returns the number of points labelled Noise.
func (r Result) NoiseCount() int {
	n := 0
	for _, l := range r.Labels {
		if l.IsNoise() {
			n++
		}
	}
	return n
}

// Sizes returns the member count of each cluster, indexed by cluster id.
func (r Result) Sizes() []int {
	sizes := make([]int, r.Clusters)
	for _, l := range r.Labels {
		if id, ok := l.ID(); ok {
			sizes[id]++
		}
	}
	return sizes
}

// DBSCAN clusters points with the vantage-point tree searcher.
// It is the plain functional form of Clusterer.Run.
func DBSCAN(points []domain.Geo, epsilonKM float64, minSamples int) ([]domain.ClusterLabel, error) {
	c, err := NewClusterer(Params{EpsilonKM: epsilonKM, MinSamples: minSamples}, spatial.StrategyVPTree)
	if err != nil {
		return nil, err
	}
	res, err := c.Run(points)
	if err != nil {
		return nil, err
	}
	return res.Labels, nil
}

// Clusterer runs DBSCAN with fixed parameters and search strategy.
type Clusterer struct {
	params   Params
	strategy spatial.Strategy
}

// NewClusterer validates params and returns a Clusterer.
func NewClusterer(params Params, strategy spatial.Strategy) (*Clusterer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := spatial.ParseStrategy(string(strategy)); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidParameter, err)
	}
	return &Clusterer{params: params, strategy: strategy}, nil
}

// Params returns the clustering parameters.
func (c *Clusterer) Params() Params { return c.params }

const (
	unvisited = 0
	noise     = -1
)

// Run labels every point. Points are scanned in input order and neighbour
// lists are walked in ascending index order, so identical input always
// yields identical labels whichever searcher is used. A non-core point
// reachable from several clusters joins the first one that reaches it.
func (c *Clusterer) Run(points []domain.Geo) (Result, error) {
	if len(points) == 0 {
		return Result{}, domain.ErrEmptyInput
	}
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return Result{}, fmt.Errorf("point %d: %w", i, err)
		}
	}

	index, err := spatial.New(c.strategy, points)
	if err != nil {
		return Result{}, err
	}

	n := len(points)
	labels := make([]int, n) // 0=unvisited, -1=noise, >0=clusterID
	core := make([]bool, n)
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := index.Within(points[i], c.params.EpsilonKM)
		if len(neighbors) < c.params.MinSamples {
			labels[i] = noise
			continue
		}

		clusterID++
		core[i] = true
		c.expand(index, points, labels, core, i, neighbors, clusterID)
	}

	out := make([]domain.ClusterLabel, n)
	for i, l := range labels {
		if l == noise {
			out[i] = domain.Noise
		} else {
			out[i] = domain.Cluster(l - 1)
		}
	}
	return Result{Labels: out, Core: core, Clusters: clusterID}, nil
}

// expand grows cluster clusterID outward from the core point seed using a
// FIFO queue of neighbour indices.
func (c *Clusterer) expand(index spatial.Searcher, points []domain.Geo, labels []int, core []bool,
	seed int, neighbors []spatial.Neighbor, clusterID int) {

	labels[seed] = clusterID

	queue := make([]int, 0, len(neighbors))
	for _, nb := range neighbors {
		queue = append(queue, nb.Index)
	}

	for j := 0; j < len(queue); j++ {
		idx := queue[j]

		if labels[idx] == noise {
			labels[idx] = clusterID // noise becomes a border point
		}
		if labels[idx] != unvisited {
			continue
		}

		labels[idx] = clusterID
		next := index.Within(points[idx], c.params.EpsilonKM)
		if len(next) >= c.params.MinSamples {
			core[idx] = true
			for _, nb := range next {
				if labels[nb.Index] == unvisited || labels[nb.Index] == noise {
					queue = append(queue, nb.Index)
				}
			}
		}
	}
}
