// README: Gateway tests through the full router with in-memory services.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flytaxi/internal/infra"
	"flytaxi/internal/maps"
	"flytaxi/internal/modules/availability"
	"flytaxi/internal/modules/order"
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/modules/profile"
	"flytaxi/internal/modules/rating"
)

type stubVerifier struct {
	identity *infra.Identity
}

func (s stubVerifier) VerifyIDToken(context.Context, string) (*infra.Identity, error) {
	return s.identity, nil
}

type gateway struct {
	router http.Handler
	now    time.Time
}

func newGateway(t *testing.T, verifier infra.TokenVerifier) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := &gateway{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}

	fares, err := pricing.NewService(pricing.DefaultTariffs())
	require.NoError(t, err)
	clock := availability.NewClock(availability.DefaultPolicy(), time.UTC, func() time.Time { return g.now })
	ratings := rating.NewService(rating.NewMemoryStore(), nil)
	svc, err := order.NewService(order.Deps{
		Sessions:     order.NewMemorySessionStore(),
		Profiles:     profile.NewMemoryStore(),
		Ratings:      ratings,
		Pricing:      fares,
		Availability: clock,
		Geocoder:     maps.OfflineGeocoder{},
		Router:       maps.OfflineRouter{},
	}, order.Options{DriverID: "flytaxi-demo-driver"})
	require.NoError(t, err)

	g.router = NewServer(":0", RouterDeps{
		Order:    svc,
		Ratings:  ratings,
		Fares:    fares,
		Clock:    clock,
		Verifier: verifier,
	}).Handler()
	return g
}

func (g *gateway) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Header().Get("Content-Type") != "" && w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestGateway_Health(t *testing.T) {
	g := newGateway(t, nil)
	w, _ := g.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestGateway_OrderFlow(t *testing.T) {
	g := newGateway(t, nil)
	events := "/api/riders/web:alice/events"

	steps := []struct {
		body  map[string]any
		state string
	}{
		{map[string]any{"kind": "start"}, "awaiting_phone"},
		{map[string]any{"kind": "contact_shared", "phone": "+380501234567", "name": "Alice"}, "awaiting_pickup"},
		{map[string]any{"kind": "location_shared", "lat": 50.4501, "lng": 30.5234}, "awaiting_destination"},
		{map[string]any{"kind": "text_entered", "text": "50.4011, 30.6520"}, "awaiting_waypoints"},
		{map[string]any{"kind": "selection", "option": "waypoints_done"}, "awaiting_car_class"},
		{map[string]any{"kind": "selection", "option": "class:standard"}, "awaiting_confirmation"},
		{map[string]any{"kind": "selection", "option": "confirm"}, "awaiting_rating"},
		{map[string]any{"kind": "selection", "option": "rate:5"}, "closed"},
	}
	for _, s := range steps {
		w, out := g.do(t, http.MethodPost, events, s.body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, s.state, out["state"], "after %v", s.body)
		assert.NotEmpty(t, out["effects"])
	}

	w, out := g.do(t, http.MethodGet, "/api/drivers/flytaxi-demo-driver/rating", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5.0, out["average"])
	assert.Equal(t, 1.0, out["count"])
}

func TestGateway_QuoteChoicesAreRendered(t *testing.T) {
	g := newGateway(t, nil)
	events := "/api/riders/web:bob/events"
	for _, body := range []map[string]any{
		{"kind": "start"},
		{"kind": "contact_shared", "phone": "+380501234567"},
		{"kind": "location_shared", "lat": 50.4501, "lng": 30.5234},
		{"kind": "location_shared", "lat": 50.4011, "lng": 30.6520},
	} {
		w, _ := g.do(t, http.MethodPost, events, body)
		require.Equal(t, http.StatusOK, w.Code)
	}
	_, out := g.do(t, http.MethodPost, events, map[string]any{"kind": "selection", "option": "waypoints_done"})
	effects := out["effects"].([]any)
	last := effects[len(effects)-1].(map[string]any)
	assert.Equal(t, "prompt", last["type"])
	choices := last["choices"].([]any)
	require.Len(t, choices, 3)
	assert.Equal(t, "class:standard", choices[0].(map[string]any)["id"])
	assert.Equal(t, "option", choices[0].(map[string]any)["kind"])
}

func TestGateway_InvalidEvents(t *testing.T) {
	g := newGateway(t, nil)
	cases := []map[string]any{
		{"kind": "teleport"},
		{"kind": "location_shared", "lat": 50.45},
		{"kind": "text_entered", "text": "  "},
		{"kind": "selection"},
	}
	for _, body := range cases {
		w, _ := g.do(t, http.MethodPost, "/api/riders/web:carol/events", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
	}
	w, _ := g.do(t, http.MethodPost, "/api/riders/bad%20id/events", map[string]any{"kind": "start"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateway_RiderOwnership(t *testing.T) {
	g := newGateway(t, stubVerifier{identity: &infra.Identity{RiderID: "fb:dana"}})

	w, _ := g.do(t, http.MethodPost, "/api/riders/fb:dana/events", map[string]any{"kind": "start"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = g.do(t, http.MethodPost, "/api/riders/fb:eve/events", map[string]any{"kind": "start"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out := g.do(t, http.MethodGet, "/api/riders/fb:dana/state", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "awaiting_phone", out["state"])
}

func TestGateway_FarePreview(t *testing.T) {
	g := newGateway(t, nil)

	w, out := g.do(t, http.MethodPost, "/api/fares/preview", map[string]any{"car_class": "standard", "distance_km": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 280.0, out["price"])
	assert.Equal(t, "UAH", out["currency"])

	g.now = time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC)
	_, out = g.do(t, http.MethodPost, "/api/fares/preview", map[string]any{"car_class": "standard", "distance_km": 10})
	assert.Equal(t, 560.0, out["price"], "friday night doubles the fare")

	w, _ = g.do(t, http.MethodPost, "/api/fares/preview", map[string]any{"car_class": "van", "distance_km": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = g.do(t, http.MethodPost, "/api/fares/preview", map[string]any{"car_class": "standard", "distance_km": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateway_AvailabilityDuringCurfew(t *testing.T) {
	g := newGateway(t, nil)
	g.now = time.Date(2026, 10, 14, 2, 0, 0, 0, time.UTC)

	w, out := g.do(t, http.MethodGet, "/api/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["available"])
	assert.Equal(t, "curfew", out["window"])

	_, out = g.do(t, http.MethodPost, "/api/fares/preview", map[string]any{"car_class": "comfort", "distance_km": 3})
	assert.Equal(t, false, out["available"])
	_, hasPrice := out["price"]
	assert.False(t, hasPrice)
}

func TestGateway_TelegramRidersAreUnreachable(t *testing.T) {
	for name, verifier := range map[string]infra.TokenVerifier{
		"auth disabled": nil,
		"auth enabled":  stubVerifier{identity: &infra.Identity{RiderID: "tg:42"}},
	} {
		t.Run(name, func(t *testing.T) {
			g := newGateway(t, verifier)

			w, _ := g.do(t, http.MethodPost, "/api/riders/tg:42/events", map[string]any{"kind": "start"})
			assert.Equal(t, http.StatusForbidden, w.Code)

			w, _ = g.do(t, http.MethodPost, "/api/riders/tg:42/events",
				map[string]any{"kind": "contact_shared", "phone": "+380000000666"})
			assert.Equal(t, http.StatusForbidden, w.Code)

			w, _ = g.do(t, http.MethodGet, "/api/riders/tg:42/state", nil)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestNewRouter_NilLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fares, err := pricing.NewService(pricing.DefaultTariffs())
	require.NoError(t, err)
	clock := availability.NewClock(availability.DefaultPolicy(), time.UTC, nil)

	r := NewRouter(RouterDeps{Fares: fares, Clock: clock})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
