package domain

import (
	"fmt"
	"iter"
)

// IncidentStore is an immutable, ordered collection of validated incidents.
// It has no mutation API; a rebuild constructs a new store.
type IncidentStore struct {
	records []IncidentRecord
}

// NewIncidentStore validates and copies records. Any out-of-range coordinate
// or undefined severity fails the whole store. Cluster labels on the input
// are cleared: only the clustering engine assigns them.
func NewIncidentStore(records []IncidentRecord) (*IncidentStore, error) {
	out := make([]IncidentRecord, len(records))
	for i, r := range records {
		if err := r.Location.Validate(); err != nil {
			return nil, fmt.Errorf("incident %d: %w", i, err)
		}
		if !r.Severity.Valid() {
			return nil, fmt.Errorf("incident %d: undefined severity %d", i, int(r.Severity))
		}
		r.Cluster = ClusterLabel{}
		out[i] = r
	}
	return &IncidentStore{records: out}, nil
}

// Len returns the number of incidents.
func (s *IncidentStore) Len() int { return len(s.records) }

// At returns a copy of the i-th incident.
func (s *IncidentStore) At(i int) IncidentRecord { return s.records[i] }

// All iterates incidents in store order.
func (s *IncidentStore) All() iter.Seq2[int, IncidentRecord] {
	return func(yield func(int, IncidentRecord) bool) {
		for i, r := range s.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Locations returns the incident coordinates in store order.
func (s *IncidentStore) Locations() []Geo {
	locs := make([]Geo, len(s.records))
	for i, r := range s.records {
		locs[i] = r.Location
	}
	return locs
}
