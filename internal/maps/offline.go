// README: Offline geocoder and router used when no Maps API key is configured.
package maps

import (
	"context"
	"strconv"
	"strings"

	"flytaxi/internal/modules/location"
	"flytaxi/internal/types"
)

const (
	// RoadFactor inflates the great-circle distance to approximate streets.
	RoadFactor = 1.3
	// OfflineSpeedKmh is the assumed average city speed.
	OfflineSpeedKmh = 30.0
)

// ParsePoint accepts "lat, lng" or "lat lng".
func ParsePoint(s string) (types.Point, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	if len(fields) != 2 {
		return types.Point{}, ErrNoLocation
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return types.Point{}, ErrNoLocation
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return types.Point{}, ErrNoLocation
	}
	p := types.Point{Lat: lat, Lng: lng}
	if err := location.Validate(p); err != nil {
		return types.Point{}, ErrNoLocation
	}
	return p, nil
}

// OfflineGeocoder only understands coordinate text. Used when no API key is set.
type OfflineGeocoder struct{}

func (OfflineGeocoder) Geocode(_ context.Context, address string) (types.Point, error) {
	p, err := ParsePoint(strings.TrimSpace(address))
	if err != nil {
		return types.Point{}, ErrNotFound
	}
	return p, nil
}

// OfflineRouter estimates a route from straight segments between stops.
type OfflineRouter struct{}

func (OfflineRouter) Route(ctx context.Context, stops []types.Point) (Route, error) {
	if len(stops) < 2 {
		return Route{}, ErrTooFewStops
	}
	if err := ctx.Err(); err != nil {
		return Route{}, err
	}
	km := location.PathKm(stops) * RoadFactor
	path := make([]types.Point, len(stops))
	copy(path, stops)
	return Route{
		DistanceKm:  km,
		DurationMin: km / OfflineSpeedKmh * 60,
		Path:        path,
	}, nil
}
