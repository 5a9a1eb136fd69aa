// README: Driving route distance and duration via Google Directions API.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"flytaxi/internal/types"
)

// RouteService resolves driving routes with the Directions API.
type RouteService struct {
	client *maps.Client
}

func NewRouteService(client *maps.Client) *RouteService {
	return &RouteService{client: client}
}

// Route returns distance and duration summed over every leg of the route
// pickup -> waypoints... -> destination. stops[0] is the pickup and the last
// element the destination.
func (s *RouteService) Route(ctx context.Context, stops []types.Point) (Route, error) {
	if len(stops) < 2 {
		return Route{}, ErrTooFewStops
	}
	r := &maps.DirectionsRequest{
		Origin:      stops[0].String(),
		Destination: stops[len(stops)-1].String(),
		Mode:        maps.TravelModeDriving,
		Language:    "uk",
		Region:      "ua",
	}
	for _, w := range stops[1 : len(stops)-1] {
		r.Waypoints = append(r.Waypoints, w.String())
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	best := routes[0]
	var meters int
	var out Route
	for _, leg := range best.Legs {
		meters += leg.Distance.Meters
		out.DurationMin += leg.Duration.Minutes()
	}
	out.DistanceKm = float64(meters) / 1000

	if path, err := best.OverviewPolyline.Decode(); err == nil {
		for _, p := range path {
			out.Path = append(out.Path, fromLatLng(p))
		}
	} else {
		out.Path = append(out.Path, stops...)
	}
	return out, nil
}
