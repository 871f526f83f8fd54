package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

const (
	maxBodyBytes    = 1 << 20
	safeZoneMessage = "You are in a safe zone."
)

// coordinate accepts a JSON number or a numeric string.
type coordinate float64

func (c *coordinate) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal([]byte(s), &s); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", string(b))
	}
	*c = coordinate(f)
	return nil
}

type checkRiskRequest struct {
	Latitude    *coordinate `json:"latitude"`
	Longitude   *coordinate `json:"longitude"`
	ThresholdKM *coordinate `json:"threshold_km"`
}

type alertJSON struct {
	CrimeType  string          `json:"crime_type"`
	Severity   domain.Severity `json:"severity"`
	DistanceKM float64         `json:"distance_km"`
	ClusterID  int             `json:"cluster_id"`
}

type messageJSON struct {
	Message string `json:"message"`
}

type successResponse struct {
	Status     string `json:"status"`
	SnapshotID string `json:"snapshot_id"`
	Data       any    `json:"data"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleCheckRisk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.metrics.QueryDuration.Observe(time.Since(start).Seconds()) }()

	var req checkRiskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.reject(w, http.StatusBadRequest, "invalid", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		s.reject(w, http.StatusBadRequest, "invalid", "invalid request body: unexpected data after JSON object")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		s.reject(w, http.StatusBadRequest, "invalid", "latitude and longitude are required")
		return
	}

	threshold := s.threshold
	if req.ThresholdKM != nil {
		threshold = float64(*req.ThresholdKM)
	}
	loc := domain.Geo{Lat: float64(*req.Latitude), Lon: float64(*req.Longitude)}

	a, err := s.assessor.Assess(loc, threshold)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrInvalidParameter):
		s.reject(w, http.StatusBadRequest, "invalid", err.Error())
		return
	case errors.Is(err, domain.ErrNotReady):
		s.reject(w, http.StatusServiceUnavailable, "not_ready", "cluster index is not ready")
		return
	default:
		s.logger.Error("risk query failed", "location", loc.String(), "error", err)
		s.reject(w, http.StatusInternalServerError, "error", "internal error")
		return
	}

	if a.Safe() {
		s.metrics.RiskQueries.WithLabelValues("safe").Inc()
		writeJSON(w, http.StatusOK, successResponse{
			Status:     "success",
			SnapshotID: a.SnapshotID,
			Data:       []messageJSON{{Message: safeZoneMessage}},
		})
		return
	}

	s.metrics.RiskQueries.WithLabelValues("alert").Inc()
	s.metrics.AlertsReturned.Add(float64(len(a.Alerts)))
	if s.publisher != nil {
		if err := s.publisher.PublishAssessment(r.Context(), a); err != nil {
			s.logger.Warn("alert publish failed", "snapshot_id", a.SnapshotID, "error", err)
		}
	}

	data := make([]alertJSON, len(a.Alerts))
	for i, al := range a.Alerts {
		data[i] = alertJSON{
			CrimeType:  al.CrimeType,
			Severity:   al.Severity,
			DistanceKM: roundTo(al.DistanceKM, 4),
			ClusterID:  al.ClusterID,
		}
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", SnapshotID: a.SnapshotID, Data: data})
}

type clusterJSON struct {
	ID          int             `json:"id"`
	Size        int             `json:"size"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	MaxSeverity domain.Severity `json:"max_severity"`
}

type clustersResponse struct {
	Status     string        `json:"status"`
	SnapshotID string        `json:"snapshot_id"`
	BuiltAt    time.Time     `json:"built_at"`
	EpsilonKM  float64       `json:"epsilon_km"`
	MinSamples int           `json:"min_samples"`
	Incidents  int           `json:"incidents"`
	Clustered  int           `json:"clustered"`
	Noise      int           `json:"noise"`
	Clusters   []clusterJSON `json:"clusters"`
}

func (s *Server) handleClusters(w http.ResponseWriter, _ *http.Request) {
	idx, err := s.snapshots.Current()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: "cluster index is not ready"})
		return
	}

	summaries := idx.Clusters()
	clusters := make([]clusterJSON, len(summaries))
	for i, c := range summaries {
		clusters[i] = clusterJSON{
			ID:          c.ID,
			Size:        c.Size,
			Latitude:    c.Centroid.Lat,
			Longitude:   c.Centroid.Lon,
			MaxSeverity: c.MaxSeverity,
		}
	}
	params := idx.Params()
	writeJSON(w, http.StatusOK, clustersResponse{
		Status:     "success",
		SnapshotID: idx.ID(),
		BuiltAt:    idx.BuiltAt(),
		EpsilonKM:  params.EpsilonKM,
		MinSamples: params.MinSamples,
		Incidents:  idx.Incidents(),
		Clustered:  idx.Clustered(),
		Noise:      idx.Noise(),
		Clusters:   clusters,
	})
}

func (s *Server) reject(w http.ResponseWriter, status int, outcome, msg string) {
	s.metrics.RiskQueries.WithLabelValues(outcome).Inc()
	writeJSON(w, status, errorResponse{Status: "error", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
