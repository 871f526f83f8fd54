package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/incident-risk-service/internal/observability"
	"github.com/couchcryptid/incident-risk-service/internal/risk"
)

// Snapshots exposes the currently published cluster index.
type Snapshots interface {
	sharedobs.ReadinessChecker
	Current() (*risk.Index, error)
}

// AlertPublisher forwards assessments that raised alerts downstream.
type AlertPublisher interface {
	PublishAssessment(ctx context.Context, a risk.Assessment) error
}

// Server exposes the risk API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	assessor   risk.Assessor
	snapshots  Snapshots
	publisher  AlertPublisher
	threshold  float64
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with /check_risk, /clusters, /healthz,
// /readyz, and /metrics routes. publisher may be nil.
func NewServer(addr string, assessor risk.Assessor, snapshots Snapshots, publisher AlertPublisher,
	defaultThresholdKM float64, logger *slog.Logger, metrics *observability.Metrics,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		assessor:  assessor,
		snapshots: snapshots,
		publisher: publisher,
		threshold: defaultThresholdKM,
		logger:    logger,
		metrics:   metrics,
	}

	mux.HandleFunc("POST /check_risk", s.handleCheckRisk)
	mux.HandleFunc("GET /clusters", s.handleClusters)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(snapshots))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
