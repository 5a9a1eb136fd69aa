// README: Concurrency tests for per-rider serialization (run with -race).
package order

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flytaxi/internal/maps"
	"flytaxi/internal/types"
)

func TestConcurrentWaypointsSameRider(t *testing.T) {
	f := newFixture(t)
	f.seedProfile(t, "tg:500")
	f.toWaypoints(t, "tg:500")

	const attempts = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	refused := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.svc.Handle(context.Background(), "tg:500", LocationEvent(stopPoint))
			if !assert.NoError(t, err) {
				return
			}
			p, _ := r.Last()
			if strings.Contains(p.Text, "не більше") {
				mu.Lock()
				refused++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	st := f.stage(t, "tg:500").(AwaitingWaypoints)
	assert.Len(t, st.Waypoints, MaxWaypoints)
	assert.Equal(t, attempts-MaxWaypoints, refused)
	assert.Zero(t, f.svc.locks.size(), "idle rider locks are released")
}

func TestConcurrentRidersCompleteIndependently(t *testing.T) {
	f := newFixture(t)
	const riders = 25

	var wg sync.WaitGroup
	for i := 0; i < riders; i++ {
		rider := types.ID(fmt.Sprintf("tg:6%02d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			events := []Event{
				StartEvent(),
				ContactEvent("+380501112233", "Rider", ""),
				LocationEvent(pickupPoint),
				TextEvent("Хрещатик 22"),
				SelectionEvent(OptionWaypointsDone),
				SelectionEvent(ClassOption("standard")),
				SelectionEvent(OptionConfirm),
				RatingEvent(5),
			}
			for _, ev := range events {
				_, err := f.svc.Handle(context.Background(), rider, ev)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.sessions.Len())
	agg, err := f.ratings.Aggregate(context.Background(), testDriver)
	require.NoError(t, err)
	assert.Equal(t, riders, agg.Count)
	assert.Equal(t, 5*riders, agg.Sum)
}

// gatedRouter blocks every call until release is closed.
type gatedRouter struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRouter) Route(ctx context.Context, stops []types.Point) (maps.Route, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return maps.Route{DistanceKm: 4, DurationMin: 8, Path: stops}, nil
	case <-ctx.Done():
		return maps.Route{}, ctx.Err()
	}
}

func TestSlowRouteDoesNotBlockOtherRiders(t *testing.T) {
	gate := &gatedRouter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	f := newFixture(t, withRouter(gate))
	f.seedProfile(t, "tg:701")
	f.seedProfile(t, "tg:702")
	f.toWaypoints(t, "tg:701")

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Handle(context.Background(), "tg:701", SelectionEvent(OptionWaypointsDone))
		done <- err
	}()
	<-gate.entered

	other := make(chan error, 1)
	go func() {
		_, err := f.svc.Handle(context.Background(), "tg:702", StartEvent())
		other <- err
	}()
	select {
	case err := <-other:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("rider tg:702 was blocked by tg:701's route call")
	}

	close(gate.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateAwaitingCarClass, f.state(t, "tg:701"))
	assert.Equal(t, StateAwaitingPickup, f.state(t, "tg:702"))
}

func TestRiderLocksSerializeSameKey(t *testing.T) {
	locks := newRiderLocks()
	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("tg:800")
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
	assert.Zero(t, locks.size())
}
