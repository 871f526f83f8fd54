package spatial

import (
	"container/heap"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

// searchSlackKM widens the tree search so points sitting exactly on the
// radius are not pruned by rounding in the triangle-inequality bounds.
// Candidates are re-checked against the exact radius afterwards.
const searchSlackKM = 1e-3

// vantageEffort is the number of candidate vantage points tried per node.
const vantageEffort = 5

// treeSeed fixes vantage selection so every build of the same points yields
// the same tree.
const treeSeed = 0x1ce1de47

// site is one distinct location in the tree. Coincident incidents share a
// site: gonum's partition step assumes no other stored point is at distance
// zero from the vantage point, and loses points when that does not hold.
type site struct {
	id      int
	geo     domain.Geo
	members []int // indexes of the points at this location, ascending
}

func (s *site) Distance(c vptree.Comparable) float64 {
	return domain.HaversineKM(s.geo, c.(*site).geo)
}

// VPTree is a vantage-point tree over the distinct point locations. Range
// queries visit roughly O(log n) nodes for small radii instead of scanning
// every point.
type VPTree struct {
	points []domain.Geo
	sites  []*site
	tree   *vptree.Tree

	// linear serves queries when the built tree fails its integrity check.
	linear *Linear
}

// NewVPTree builds the tree. An empty point set yields a searcher that
// never finds anything.
func NewVPTree(points []domain.Geo) (*VPTree, error) {
	t := &VPTree{points: append([]domain.Geo(nil), points...)}
	if len(points) == 0 {
		return t, nil
	}

	byGeo := make(map[domain.Geo]*site, len(points))
	for i, p := range t.points {
		s, ok := byGeo[p]
		if !ok {
			s = &site{id: len(t.sites), geo: p}
			byGeo[p] = s
			t.sites = append(t.sites, s)
		}
		s.members = append(s.members, i)
	}

	cs := make([]vptree.Comparable, len(t.sites))
	for i, s := range t.sites {
		cs[i] = s
	}
	tree, err := vptree.New(cs, vantageEffort, rand.NewPCG(treeSeed, treeSeed))
	if err != nil {
		return nil, fmt.Errorf("build vp-tree: %w", err)
	}

	if !holdsEachSiteOnce(tree, len(t.sites)) {
		t.linear = NewLinear(t.points)
		return t, nil
	}
	t.tree = tree
	return t, nil
}

// holdsEachSiteOnce reports whether every site is stored exactly once. Two
// distinct locations whose haversine distance rounds to zero can still trip
// the partition step.
func holdsEachSiteOnce(tree *vptree.Tree, n int) bool {
	seen := make([]bool, n)
	count := 0
	dup := tree.Do(func(c vptree.Comparable, _ int) bool {
		s := c.(*site)
		if seen[s.id] {
			return true
		}
		seen[s.id] = true
		count++
		return false
	})
	return !dup && count == n
}

func (t *VPTree) Within(q domain.Geo, radiusKM float64) []Neighbor {
	if t.linear != nil {
		return t.linear.Within(q, radiusKM)
	}
	if t.tree == nil || radiusKM < 0 {
		return nil
	}

	keep := newRangeKeeper(radiusKM + searchSlackKM)
	t.tree.NearestSet(keep, &site{id: -1, geo: q})

	var out []Neighbor
	for _, c := range keep.Heap {
		// NearestSet drops the sentinel, but keep the guard for an empty heap.
		if c.Comparable == nil {
			continue
		}
		s := c.Comparable.(*site)
		d := domain.HaversineKM(q, s.geo)
		if d > radiusKM {
			continue
		}
		for _, i := range s.members {
			out = append(out, Neighbor{Index: i, DistanceKM: d})
		}
	}
	sortByIndex(out)
	return out
}

func (t *VPTree) Len() int { return len(t.points) }

// rangeKeeper retains every site within a fixed distance, each at most once.
type rangeKeeper struct {
	vptree.Heap
	seen map[int]struct{}
}

func newRangeKeeper(radius float64) *rangeKeeper {
	return &rangeKeeper{
		Heap: vptree.Heap{{Dist: radius}},
		seen: make(map[int]struct{}),
	}
}

func (k *rangeKeeper) Keep(c vptree.ComparableDist) {
	if c.Dist > k.Heap[0].Dist {
		return
	}
	s := c.Comparable.(*site)
	if _, ok := k.seen[s.id]; ok {
		return
	}
	k.seen[s.id] = struct{}{}
	heap.Push(k, c)
}
