// Package geo holds the great-circle math used to compare two location readings.
package geo

import "math"

const EarthRadiusKm = 6371.0

type Point struct {
	Latitude  float64
	Longitude float64
}

// IsZero reports whether p is the (0,0) reading browsers emit before a fix is locked.
func (p Point) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// InRange reports whether both coordinates are within their valid ranges.
func (p Point) InRange() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Distance returns the haversine distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	const rad = math.Pi / 180.0

	dLat := (b.Latitude - a.Latitude) * rad
	dLon := (b.Longitude - a.Longitude) * rad

	lat1 := a.Latitude * rad
	lat2 := b.Latitude * rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)

	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, h)

	return EarthRadiusKm * 2 * math.Asin(math.Sqrt(h))
}
