package pipeline

import "github.com/couchcryptid/incident-risk-service/internal/domain"

// transform parses raw rows into incident records. Rows with unusable
// coordinates or severity are skipped and counted.
func (b *Builder) transform(raws []domain.RawIncident) []domain.IncidentRecord {
	records := make([]domain.IncidentRecord, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		rec, err := domain.ParseIncident(raw)
		if err != nil {
			rejected++
			b.logger.Debug("incident rejected", "line", raw.Line, "error", err)
			continue
		}
		records = append(records, rec)
	}

	if rejected > 0 {
		b.metrics.IncidentsRejected.Add(float64(rejected))
		b.logger.Warn("rejected incident rows", "rejected", rejected, "accepted", len(records))
	}
	return records
}
