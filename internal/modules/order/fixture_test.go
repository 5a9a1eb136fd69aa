package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flytaxi/internal/maps"
	"flytaxi/internal/modules/availability"
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/modules/profile"
	"flytaxi/internal/modules/rating"
	"flytaxi/internal/types"
)

var (
	pickupPoint = types.Point{Lat: 50.4501, Lng: 30.5234}
	stopPoint   = types.Point{Lat: 50.4406, Lng: 30.4890}
	destPoint   = types.Point{Lat: 50.4011, Lng: 30.6520}
)

const testDriver = types.ID("flytaxi-demo-driver")

// wednesdayAt returns 2026-10-14 (a Wednesday) at hh:mm UTC.
func wednesdayAt(hh, mm int) time.Time {
	return time.Date(2026, 10, 14, hh, mm, 0, 0, time.UTC)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type stubGeocoder struct {
	mu     sync.Mutex
	known  map[string]types.Point
	err    error
	called int
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (types.Point, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.called++
	if g.err != nil {
		return types.Point{}, g.err
	}
	p, ok := g.known[strings.TrimSpace(address)]
	if !ok {
		return types.Point{}, maps.ErrNotFound
	}
	return p, nil
}

type stubRouter struct {
	mu    sync.Mutex
	km    float64
	err   error
	stops [][]types.Point
}

func (r *stubRouter) Route(ctx context.Context, stops []types.Point) (maps.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, stops)
	if r.err != nil {
		return maps.Route{}, r.err
	}
	if err := ctx.Err(); err != nil {
		return maps.Route{}, err
	}
	return maps.Route{DistanceKm: r.km, DurationMin: r.km * 2, Path: stops}, nil
}

func (r *stubRouter) set(km float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.km, r.err = km, err
}

type stubRenderer struct {
	err error
}

func (m stubRenderer) Render(_ context.Context, stops, _ []types.Point) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(stops) < 2 {
		return nil, errors.New("too few stops")
	}
	return []byte("\x89PNG"), nil
}

// corruptingStore reports ErrCorruptSession for marked riders until their
// record is deleted.
type corruptingStore struct {
	*MemorySessionStore
	mu      sync.Mutex
	corrupt map[types.ID]bool
	deleted []types.ID
}

func newCorruptingStore(riders ...types.ID) *corruptingStore {
	s := &corruptingStore{MemorySessionStore: NewMemorySessionStore(), corrupt: map[types.ID]bool{}}
	for _, r := range riders {
		s.corrupt[r] = true
	}
	return s
}

func (s *corruptingStore) Get(ctx context.Context, riderID types.ID) (Session, bool, error) {
	s.mu.Lock()
	bad := s.corrupt[riderID]
	s.mu.Unlock()
	if bad {
		return Session{}, false, fmt.Errorf("%w: decode: unexpected end of JSON input", ErrCorruptSession)
	}
	return s.MemorySessionStore.Get(ctx, riderID)
}

func (s *corruptingStore) Delete(ctx context.Context, riderID types.ID) error {
	s.mu.Lock()
	delete(s.corrupt, riderID)
	s.deleted = append(s.deleted, riderID)
	s.mu.Unlock()
	return s.MemorySessionStore.Delete(ctx, riderID)
}

type fixture struct {
	svc      *Service
	sessions *MemorySessionStore
	profiles *profile.MemoryStore
	ratings  *rating.Service
	geo      *stubGeocoder
	router   *stubRouter
	clock    *testClock
}

type fixtureOption func(*Deps, *Options)

func withRenderer(r MapRenderer) fixtureOption {
	return func(d *Deps, _ *Options) { d.Maps = r }
}

func withSessions(s SessionStore) fixtureOption {
	return func(d *Deps, _ *Options) { d.Sessions = s }
}

func withRouter(r Router) fixtureOption {
	return func(d *Deps, _ *Options) { d.Router = r }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	pricingSvc, err := pricing.NewService(pricing.DefaultTariffs())
	require.NoError(t, err)

	f := &fixture{
		sessions: NewMemorySessionStore(),
		profiles: profile.NewMemoryStore(),
		ratings:  rating.NewService(rating.NewMemoryStore(), nil),
		geo: &stubGeocoder{known: map[string]types.Point{
			"Хрещатик 22":     destPoint,
			"Вокзальна площа": stopPoint,
		}},
		router: &stubRouter{km: 10},
		clock:  &testClock{now: wednesdayAt(12, 0)},
	}

	deps := Deps{
		Sessions:     f.sessions,
		Profiles:     f.profiles,
		Ratings:      f.ratings,
		Pricing:      pricingSvc,
		Availability: availability.NewClock(availability.DefaultPolicy(), time.UTC, f.clock.Now),
		Geocoder:     f.geo,
		Router:       f.router,
		Maps:         stubRenderer{},
	}
	seq := 0
	var seqMu sync.Mutex
	options := Options{
		RouteTimeout: time.Second,
		DriverID:     testDriver,
		NewOrderID: func() types.ID {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return types.ID(fmt.Sprintf("order-%d", seq))
		},
	}
	for _, o := range opts {
		o(&deps, &options)
	}

	f.svc, err = NewService(deps, options)
	require.NoError(t, err)
	return f
}

func (f *fixture) send(t *testing.T, rider types.ID, ev Event) Reply {
	t.Helper()
	r, err := f.svc.Handle(context.Background(), rider, ev)
	require.NoError(t, err)
	return r
}

func (f *fixture) state(t *testing.T, rider types.ID) State {
	t.Helper()
	st, err := f.svc.State(context.Background(), rider)
	require.NoError(t, err)
	return st
}

func (f *fixture) stage(t *testing.T, rider types.ID) Stage {
	t.Helper()
	sess, ok, err := f.sessions.Get(context.Background(), rider)
	require.NoError(t, err)
	require.True(t, ok, "rider %s has no session", rider)
	return sess.Stage
}

func (f *fixture) seedProfile(t *testing.T, rider types.ID) {
	t.Helper()
	require.NoError(t, f.profiles.Upsert(context.Background(), profile.Profile{RiderID: rider, Phone: "+380501234567"}))
}

// toWaypoints drives a rider with a stored profile up to AwaitingWaypoints.
func (f *fixture) toWaypoints(t *testing.T, rider types.ID) {
	t.Helper()
	f.send(t, rider, StartEvent())
	f.send(t, rider, LocationEvent(pickupPoint))
	f.send(t, rider, TextEvent("Хрещатик 22"))
	require.Equal(t, StateAwaitingWaypoints, f.state(t, rider))
}

func (f *fixture) toConfirmation(t *testing.T, rider types.ID, class pricing.CarClass) {
	t.Helper()
	f.toWaypoints(t, rider)
	f.send(t, rider, SelectionEvent(OptionWaypointsDone))
	f.send(t, rider, SelectionEvent(ClassOption(string(class))))
	require.Equal(t, StateAwaitingConfirmation, f.state(t, rider))
}

func lastPrompt(t *testing.T, r Reply) Prompt {
	t.Helper()
	p, ok := r.Last()
	require.True(t, ok, "reply has no prompt")
	return p
}

func choiceIDs(p Prompt) []string {
	ids := make([]string, 0, len(p.Choices))
	for _, c := range p.Choices {
		ids = append(ids, c.ID)
	}
	return ids
}
