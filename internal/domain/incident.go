package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Severity is the ordinal incident severity. Zero is not a valid severity.
type Severity int

const (
	SeverityLow      Severity = 1
	SeverityModerate Severity = 2
	SeveritySevere   Severity = 3
)

var severityLabels = map[string]Severity{
	"low":      SeverityLow,
	"moderate": SeverityModerate,
	"severe":   SeveritySevere,
}

// ParseSeverity maps a source label ("Low", "Moderate", "Severe", any case)
// to a Severity. Unmapped labels are an error; the source data has no
// "unknown" bucket.
func ParseSeverity(s string) (Severity, error) {
	sev, ok := severityLabels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Valid reports whether s is one of the three defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeveritySevere
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityModerate:
		return "Moderate"
	case SeveritySevere:
		return "Severe"
	default:
		return "Severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// ClusterLabel is the clustering outcome for one incident: Noise or
// Cluster(id). The zero value means no label has been assigned yet.
type ClusterLabel struct {
	// v encodes the label: 0 unassigned, -1 noise, id+1 for Cluster(id).
	v int
}

// Noise is the shared sentinel for incidents that belong to no cluster.
var Noise = ClusterLabel{v: -1}

// Cluster returns the label for cluster id. It panics on a negative id.
func Cluster(id int) ClusterLabel {
	if id < 0 {
		panic("domain: negative cluster id " + strconv.Itoa(id))
	}
	return ClusterLabel{v: id + 1}
}

// Assigned reports whether the clustering engine has labelled the incident.
func (l ClusterLabel) Assigned() bool { return l.v != 0 }

// IsNoise reports whether l is the Noise sentinel.
func (l ClusterLabel) IsNoise() bool { return l.v == -1 }

// ID returns the cluster id and true, or 0 and false for Noise and unassigned labels.
func (l ClusterLabel) ID() (int, bool) {
	if l.v <= 0 {
		return 0, false
	}
	return l.v - 1, true
}

func (l ClusterLabel) String() string {
	switch {
	case l.v == 0:
		return "unassigned"
	case l.v < 0:
		return "noise"
	default:
		return "cluster(" + strconv.Itoa(l.v-1) + ")"
	}
}

// MarshalJSON encodes Noise as -1 and Cluster(id) as id, matching the
// conventional DBSCAN label vector. Unassigned labels encode as null.
func (l ClusterLabel) MarshalJSON() ([]byte, error) {
	switch {
	case l.v == 0:
		return []byte("null"), nil
	case l.IsNoise():
		return []byte("-1"), nil
	default:
		return json.Marshal(l.v - 1)
	}
}

// RawIncident is one source row restricted to the columns the service uses.
// All fields are untrimmed source text.
type RawIncident struct {
	Latitude  string
	Longitude string
	CrimeType string
	Severity  string

	// Line is the 1-based source position, used only for diagnostics.
	Line int
}

// IncidentRecord is a validated incident. Location and Severity are
// guaranteed valid for records built by ParseIncident or NewIncidentStore.
type IncidentRecord struct {
	Location  Geo          `json:"location"`
	CrimeType string       `json:"crime_type"`
	Severity  Severity     `json:"severity"`
	Cluster   ClusterLabel `json:"cluster"`
}

// ParseIncident converts a raw source row into an IncidentRecord, rejecting
// rows whose coordinates or severity label are unusable.
func ParseIncident(raw RawIncident) (IncidentRecord, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(raw.Latitude), 64)
	if err != nil {
		return IncidentRecord{}, fmt.Errorf("line %d: %w: latitude %q", raw.Line, ErrInvalidCoordinate, raw.Latitude)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(raw.Longitude), 64)
	if err != nil {
		return IncidentRecord{}, fmt.Errorf("line %d: %w: longitude %q", raw.Line, ErrInvalidCoordinate, raw.Longitude)
	}
	loc := Geo{Lat: lat, Lon: lon}
	if err := loc.Validate(); err != nil {
		return IncidentRecord{}, fmt.Errorf("line %d: %w", raw.Line, err)
	}

	sev, err := ParseSeverity(raw.Severity)
	if err != nil {
		return IncidentRecord{}, fmt.Errorf("line %d: %w", raw.Line, err)
	}

	return IncidentRecord{
		Location:  loc,
		CrimeType: strings.TrimSpace(raw.CrimeType),
		Severity:  sev,
	}, nil
}

// RiskAlert is one clustered incident within range of a query location.
type RiskAlert struct {
	CrimeType  string   `json:"crime_type"`
	Severity   Severity `json:"severity"`
	DistanceKM float64  `json:"distance_km"`
	ClusterID  int      `json:"cluster_id"`
}
