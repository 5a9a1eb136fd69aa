// README: Google Maps Platform adapters (geocoding, directions, static map) plus an offline fallback.
package maps

import (
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"flytaxi/internal/types"
)

var (
	ErrNotFound     = errors.New("maps: address not found")
	ErrNoRoute      = errors.New("maps: no route found")
	ErrTooFewStops  = errors.New("maps: route needs at least two stops")
	ErrNoLocation   = errors.New("maps: location could not be parsed")
	ErrNoRenderable = errors.New("maps: nothing to render")
)

// Route is a driving route through an ordered list of stops.
type Route struct {
	DistanceKm  float64
	DurationMin float64
	Path        []types.Point
}

// NewClient builds a shared Google Maps client for the services below.
func NewClient(apiKey string) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

func toLatLng(p types.Point) maps.LatLng {
	return maps.LatLng{Lat: p.Lat, Lng: p.Lng}
}

func fromLatLng(l maps.LatLng) types.Point {
	return types.Point{Lat: l.Lat, Lng: l.Lng}
}

func toLatLngs(points []types.Point) []maps.LatLng {
	out := make([]maps.LatLng, 0, len(points))
	for _, p := range points {
		out = append(out, toLatLng(p))
	}
	return out
}
