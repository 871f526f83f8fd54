// Package domain models reported incidents and the values exchanged between
// the clustering and risk-query stages.
//
// # Data Source
//
// Incidents originate from a tabular crime report export (crime_data.csv or
// an equivalent SQLite table). Only four columns matter to this service:
//
//	Latitude, Longitude  WGS-84 decimal degrees
//	Crime_Type           free-form label, passed through untouched
//	Severity             "Low", "Moderate" or "Severe"
//
// Every other column (date, time, victim details, weapon, response time,
// arrest flag) is dropped at ingestion. Rows with an unknown severity label
// or an out-of-range coordinate are rejected by [ParseIncident] and never
// reach the clustering stage.
//
// # Distance
//
// All distances are great-circle distances on a sphere of radius
// [EarthRadiusKM] (the mean Earth radius, 6371 km), computed with the
// haversine formula in [HaversineKM]. Clustering and risk queries use the
// same function, so "near a cluster" and "near a clustered incident" are the
// same concept. Kilometre thresholds map to central angles as km / 6371.
//
// # Cluster Labels
//
// A [ClusterLabel] is either Noise or Cluster(id) with id >= 0. The zero
// value is "unassigned": only the clustering engine hands out assigned
// labels. Ids are assigned in the order clusters are discovered while
// scanning incidents in input order.
//
// # Errors
//
// The four failure classes are exported sentinels: [ErrInvalidParameter],
// [ErrInvalidCoordinate], [ErrEmptyInput] and [ErrNotReady]. Callers wrap
// them with context and match with errors.Is.
package domain
