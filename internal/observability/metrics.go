package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk service.
type Metrics struct {
	// Build metrics.
	IncidentsLoaded   prometheus.Gauge
	IncidentsRejected prometheus.Counter
	Clusters          prometheus.Gauge
	NoiseIncidents    prometheus.Gauge
	BuildDuration     prometheus.Histogram
	BuildFailures     prometheus.Counter
	IndexReady        prometheus.Gauge

	// Query metrics.
	RiskQueries    *prometheus.CounterVec // labels: outcome={alert,safe,invalid,not_ready,error}
	AlertsReturned prometheus.Counter
	QueryDuration  prometheus.Histogram
	QueryCache     *prometheus.CounterVec // labels: result={hit,miss}

	// Alert publishing metrics.
	AlertsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		IncidentsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_risk",
			Name:      "incidents_loaded",
			Help:      "Incidents accepted into the current cluster snapshot.",
		}),
		IncidentsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_risk",
			Name:      "incidents_rejected_total",
			Help:      "Source rows rejected for bad coordinates or severity.",
		}),
		Clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_risk",
			Name:      "clusters",
			Help:      "Number of clusters in the current snapshot.",
		}),
		NoiseIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_risk",
			Name:      "noise_incidents",
			Help:      "Incidents labelled noise in the current snapshot.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_risk",
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete load-cluster-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		BuildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_risk",
			Name:      "build_failures_total",
			Help:      "Snapshot builds that failed and left the previous snapshot in place.",
		}),
		IndexReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_risk",
			Name:      "index_ready",
			Help:      "1 once a cluster snapshot has been published, 0 before.",
		}),
		RiskQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_risk",
			Name:      "queries_total",
			Help:      "Risk queries by outcome.",
		}, []string{"outcome"}),
		AlertsReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_risk",
			Name:      "alerts_returned_total",
			Help:      "Total alerts returned across all risk queries.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_risk",
			Name:      "query_duration_seconds",
			Help:      "Risk query latency, excluding request decoding.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_risk",
			Name:      "query_cache_total",
			Help:      "Assessment cache lookups by result.",
		}, []string{"result"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_risk",
			Name:      "alerts_published_total",
			Help:      "Assessments with alerts written to the alert topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_risk",
			Name:      "alert_publish_errors_total",
			Help:      "Failed writes to the alert topic.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.IncidentsLoaded,
		m.IncidentsRejected,
		m.Clusters,
		m.NoiseIncidents,
		m.BuildDuration,
		m.BuildFailures,
		m.IndexReady,
		m.RiskQueries,
		m.AlertsReturned,
		m.QueryDuration,
		m.QueryCache,
		m.AlertsPublished,
		m.PublishErrors,
	}
}

// ObserveCacheLookup records one assessment cache lookup.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.QueryCache.WithLabelValues("hit").Inc()
		return
	}
	m.QueryCache.WithLabelValues("miss").Inc()
}
