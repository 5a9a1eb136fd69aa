// README: Address geocoding via Google Geocoding API.
package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"flytaxi/internal/types"
)

// GeocodeService turns free-text addresses into coordinates.
type GeocodeService struct {
	client *maps.Client
	// Region biases results, e.g. "ua".
	Region string
}

func NewGeocodeService(client *maps.Client, region string) *GeocodeService {
	return &GeocodeService{client: client, Region: region}
}

// Geocode returns the best match for address. Text that already is a
// "lat, lng" pair is returned without calling the API.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (types.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return types.Point{}, ErrNotFound
	}
	if p, err := ParsePoint(address); err == nil {
		return p, nil
	}

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Language: "uk",
		Region:   s.Region,
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, ErrNotFound
	}
	return fromLatLng(results[0].Geometry.Location), nil
}
