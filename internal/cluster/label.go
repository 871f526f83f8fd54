package cluster

import "github.com/couchcryptid/incident-risk-service/internal/domain"

// LabelStore clusters every incident in the store and returns labelled
// copies in store order. The store itself is not modified.
func (c *Clusterer) LabelStore(store *domain.IncidentStore) ([]domain.IncidentRecord, Result, error) {
	res, err := c.Run(store.Locations())
	if err != nil {
		return nil, Result{}, err
	}

	records := make([]domain.IncidentRecord, 0, store.Len())
	for i, r := range store.All() {
		r.Cluster = res.Labels[i]
		records = append(records, r)
	}
	return records, res, nil
}
