package geospatial

import "math"

const (
	// EarthRadiusMiles is the mean Earth radius used for trip distances.
	EarthRadiusMiles = 3959.0
	// EarthRadiusKm is the same radius in kilometres.
	EarthRadiusKm = 6371.0
)

// Haversine returns the great-circle distance between two points given in
// decimal degrees. The result is in the unit of radius.
func Haversine(lat1, lon1, lat2, lon2, radius float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dLat := phi2 - phi1
	dLon := toRad(lon2) - toRad(lon1)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLon/2), 2)

	// Rounding can push a slightly past 1 for antipodal points.
	if a > 1 {
		a = 1
	}
	return 2 * radius * math.Asin(math.Sqrt(a))
}

// Speed returns distance per hour for a duration given in seconds.
// A zero duration yields +Inf, also when the distance is zero.
func Speed(distance, seconds float64) float64 {
	if seconds == 0 {
		return math.Inf(1)
	}
	return distance / (seconds / 3600)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
