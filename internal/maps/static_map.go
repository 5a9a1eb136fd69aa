// README: Static map rendering of a trip preview via Google Static Maps.
package maps

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"googlemaps.github.io/maps"

	"flytaxi/internal/types"
)

// maxPathPoints keeps the request URL well under the Static Maps length limit.
const maxPathPoints = 100

// StaticMapService renders a PNG preview of a trip.
type StaticMapService struct {
	client *maps.Client
	Size   string
}

func NewStaticMapService(client *maps.Client) *StaticMapService {
	return &StaticMapService{client: client, Size: "640x400"}
}

// Render draws the pickup (A), each waypoint (1..n), the destination (B) and
// the route path when one is known.
func (s *StaticMapService) Render(ctx context.Context, stops, path []types.Point) ([]byte, error) {
	if len(stops) == 0 {
		return nil, ErrNoRenderable
	}
	r := &maps.StaticMapRequest{
		Size:    s.Size,
		Markers: stopMarkers(stops),
	}
	if len(path) > 1 {
		r.Paths = []maps.Path{{Color: "0x1E88E5", Weight: 4, Location: toLatLngs(thinPath(path, maxPathPoints))}}
	}

	img, err := s.client.StaticMap(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("static map api error: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode static map: %w", err)
	}
	return buf.Bytes(), nil
}

func stopMarkers(stops []types.Point) []maps.Marker {
	markers := make([]maps.Marker, 0, len(stops))
	last := len(stops) - 1
	for i, p := range stops {
		m := maps.Marker{Location: []maps.LatLng{toLatLng(p)}}
		switch {
		case i == 0:
			m.Color, m.Label = "green", "A"
		case i == last:
			m.Color, m.Label = "red", "B"
		default:
			m.Color, m.Label = "blue", fmt.Sprint(i)
		}
		markers = append(markers, m)
	}
	return markers
}

// thinPath keeps at most limit evenly spaced points, always including both ends.
func thinPath(path []types.Point, limit int) []types.Point {
	if len(path) <= limit || limit < 2 {
		return path
	}
	out := make([]types.Point, 0, limit)
	step := float64(len(path)-1) / float64(limit-1)
	for i := 0; i < limit-1; i++ {
		out = append(out, path[int(float64(i)*step)])
	}
	return append(out, path[len(path)-1])
}
