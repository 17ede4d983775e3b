package geo

import (
	"math"

	"locova/internal/domain/trend"
)

const earthRadiusKm = 6371.0

// Distance calculates the great-circle distance between two locations in kilometers
func Distance(a, b trend.Location) float64 {
	// Haversine formula
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	hSin := math.Sin((lat2 - lat1) / 2)
	hSin *= hSin

	vSin := math.Sin((lon2 - lon1) / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// IsWithinBounds checks if a location is within radiusKm of center
func IsWithinBounds(location, center trend.Location, radiusKm float64) bool {
	return Distance(location, center) <= radiusKm
}

// RadiusLimits bounds the search radius a caller may request
type RadiusLimits struct {
	Default float64
	Min     float64
	Max     float64
}

// Clamp returns radius limited to [Min, Max], or Default when radius is not positive
func (l RadiusLimits) Clamp(radius float64) float64 {
	if radius <= 0 {
		return l.Default
	}
	return math.Min(l.Max, math.Max(l.Min, radius))
}
