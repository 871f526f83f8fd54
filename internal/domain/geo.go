package domain

import (
	"fmt"
	"math"
)

// EarthRadiusKM is the mean Earth radius used for every great-circle distance.
const EarthRadiusKM = 6371.0

// Geo represents a WGS-84 latitude/longitude coordinate pair in decimal degrees.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidCoordinate when either component is not finite
// or lies outside [-90, 90] / [-180, 180].
func (g Geo) Validate() error {
	if math.IsNaN(g.Lat) || math.IsInf(g.Lat, 0) || g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, g.Lat)
	}
	if math.IsNaN(g.Lon) || math.IsInf(g.Lon, 0) || g.Lon < -180 || g.Lon > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, g.Lon)
	}
	return nil
}

// String formats the coordinate as "lat,lon".
func (g Geo) String() string {
	return fmt.Sprintf("%.6f,%.6f", g.Lat, g.Lon)
}

// HaversineKM returns the great-circle distance in kilometres between a and b
// on a sphere of radius EarthRadiusKM. The result is symmetric in its
// arguments and handles antimeridian and polar pairs without special cases.
func HaversineKM(a, b Geo) float64 {
	return EarthRadiusKM * centralAngle(a, b)
}

// centralAngle returns the angle in radians subtended at the sphere's centre.
func centralAngle(a, b Geo) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h a hair past 1 for antipodal points.
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h))
}

// KMToRadians converts a surface distance to the equivalent central angle.
func KMToRadians(km float64) float64 {
	return km / EarthRadiusKM
}
