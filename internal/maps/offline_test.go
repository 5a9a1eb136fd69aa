package maps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flytaxi/internal/types"
)

var (
	maidan = types.Point{Lat: 50.4501, Lng: 30.5234}
	vokzal = types.Point{Lat: 50.4406, Lng: 30.4890}
	lavra  = types.Point{Lat: 50.4347, Lng: 30.5572}
)

func TestParsePoint(t *testing.T) {
	cases := []struct {
		in   string
		want types.Point
		ok   bool
	}{
		{"50.4501, 30.5234", maidan, true},
		{"50.4501 30.5234", maidan, true},
		{" 50.4501,30.5234 ", maidan, true},
		{"Хрещатик 1", types.Point{}, false},
		{"91, 30", types.Point{}, false},
		{"50.45", types.Point{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePoint(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrNoLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOfflineGeocoder(t *testing.T) {
	g := OfflineGeocoder{}
	p, err := g.Geocode(context.Background(), "50.4406, 30.4890")
	require.NoError(t, err)
	assert.Equal(t, vokzal, p)

	_, err = g.Geocode(context.Background(), "вул. Січових Стрільців")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOfflineRouter_SumsSegments(t *testing.T) {
	r := OfflineRouter{}
	direct, err := r.Route(context.Background(), []types.Point{maidan, lavra})
	require.NoError(t, err)
	assert.Greater(t, direct.DistanceKm, 0.0)
	assert.InDelta(t, direct.DistanceKm/OfflineSpeedKmh*60, direct.DurationMin, 1e-9)

	via, err := r.Route(context.Background(), []types.Point{maidan, vokzal, lavra})
	require.NoError(t, err)
	assert.Greater(t, via.DistanceKm, direct.DistanceKm, "detour through a waypoint is longer")
	assert.Len(t, via.Path, 3)
}

func TestOfflineRouter_Errors(t *testing.T) {
	r := OfflineRouter{}
	_, err := r.Route(context.Background(), []types.Point{maidan})
	assert.ErrorIs(t, err, ErrTooFewStops)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Route(ctx, []types.Point{maidan, lavra})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStopMarkers(t *testing.T) {
	markers := stopMarkers([]types.Point{maidan, vokzal, lavra})
	require.Len(t, markers, 3)
	assert.Equal(t, "A", markers[0].Label)
	assert.Equal(t, "1", markers[1].Label)
	assert.Equal(t, "B", markers[2].Label)
}

func TestThinPath(t *testing.T) {
	path := make([]types.Point, 0, 1000)
	for i := 0; i < 1000; i++ {
		path = append(path, types.Point{Lat: 50 + float64(i)/1000, Lng: 30})
	}

	thin := thinPath(path, maxPathPoints)
	require.Len(t, thin, maxPathPoints)
	assert.Equal(t, path[0], thin[0])
	assert.Equal(t, path[len(path)-1], thin[len(thin)-1])
	for i := 1; i < len(thin); i++ {
		assert.Greater(t, thin[i].Lat, thin[i-1].Lat, "points stay in route order")
	}

	short := path[:10]
	assert.Equal(t, short, thinPath(short, maxPathPoints))
}
