// Package location holds pure geographic helpers: distances, path length and coordinate checks.
package location

import (
	"errors"
	"math"

	"flytaxi/internal/types"
)

const earthRadiusKm = 6371.0

var ErrInvalidPoint = errors.New("coordinate out of range")

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// PathKm sums the great-circle length of consecutive legs. Fewer than two
// points yield 0.
func PathKm(points []types.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1], points[i])
	}
	return total
}

// Validate rejects NaN and out-of-range latitude/longitude.
func Validate(p types.Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) ||
		p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidPoint
	}
	return nil
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
