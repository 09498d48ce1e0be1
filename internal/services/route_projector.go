package services

import (
	"fuel-route-service/internal/domain"
	"math"
)

const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(latA, lonA, latB, lonB float64) float64 {
	lat1 := latA * math.Pi / 180
	lat2 := latB * math.Pi / 180
	dLat := (latB - latA) * math.Pi / 180
	dLon := (lonB - lonA) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Rounding can push h a hair past 1 for antipodal points.
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

// CumulativeDistances returns the along-route distance profile of a polyline:
// profile[0] is 0 and profile[i] adds the haversine length of leg i-1 -> i.
func CumulativeDistances(points []domain.Coordinates) []float64 {
	profile := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		profile[i] = profile[i-1] + HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return profile
}

// DistanceAlongRoute snaps p to the nearest polyline vertex and returns that
// vertex's cumulative distance. Ties go to the lowest index.
//
// Snapping to vertices rather than projecting onto segments is an accepted
// approximation; planner tie-breaking depends on it.
func DistanceAlongRoute(p domain.Coordinates, points []domain.Coordinates, profile []float64) float64 {
	if len(points) == 0 || len(profile) == 0 {
		return 0
	}

	best := 0
	bestDist := math.Inf(1)
	for i, v := range points {
		d := HaversineKm(p.Lat, p.Lon, v.Lat, v.Lon)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}

	if best >= len(profile) {
		best = len(profile) - 1
	}
	return profile[best]
}
