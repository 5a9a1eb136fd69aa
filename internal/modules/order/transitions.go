// README: Transition table for the ordering dialogue; one handler per (state, event kind).
package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flytaxi/internal/maps"
	"flytaxi/internal/modules/location"
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/modules/profile"
	"flytaxi/internal/modules/rating"
	"flytaxi/internal/types"
)

type turn struct {
	riderID types.ID
	stage   Stage
	event   Event
	log     *zap.Logger
}

// step is a handler outcome. A nil next without close leaves the session
// exactly as it was.
type step struct {
	next  Stage
	close bool
	reply Reply
}

type handler func(ctx context.Context, t turn) (step, error)

type transitionKey struct {
	state State
	kind  EventKind
}

type transitions map[transitionKey]handler

type tableBuilder struct {
	table transitions
	errs  []error
}

func (b *tableBuilder) on(state State, kind EventKind, h handler) {
	k := transitionKey{state, kind}
	if _, dup := b.table[k]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate transition (%s, %s)", state, kind))
		return
	}
	b.table[k] = h
}

// otherwise routes every kind not yet registered for state to h.
func (b *tableBuilder) otherwise(state State, h handler) {
	for _, kind := range allEventKinds {
		if _, ok := b.table[transitionKey{state, kind}]; !ok {
			b.table[transitionKey{state, kind}] = h
		}
	}
}

func (b *tableBuilder) build(states []State) (transitions, error) {
	for _, st := range states {
		for _, kind := range allEventKinds {
			if _, ok := b.table[transitionKey{st, kind}]; !ok {
				b.errs = append(b.errs, fmt.Errorf("missing transition (%s, %s)", st, kind))
			}
		}
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvariant, errors.Join(b.errs...))
	}
	return b.table, nil
}

func (s *Service) buildTransitions() (transitions, error) {
	b := &tableBuilder{table: transitions{}}
	for _, st := range liveStates {
		b.on(st, EventStart, s.onStart)
		b.on(st, EventCancelRequested, s.onCancel)
	}
	b.on(StateAwaitingPhone, EventContactShared, s.onContact)
	b.on(StateAwaitingPickup, EventLocationShared, s.onPickup)
	b.on(StateAwaitingDestination, EventTextEntered, s.onDestinationText)
	b.on(StateAwaitingDestination, EventLocationShared, s.onDestinationPoint)
	b.on(StateAwaitingWaypoints, EventTextEntered, s.onWaypointText)
	b.on(StateAwaitingWaypoints, EventLocationShared, s.onWaypointPoint)
	b.on(StateAwaitingWaypoints, EventSelection, s.onWaypointSelection)
	b.on(StateAwaitingCarClass, EventSelection, s.onCarClass)
	b.on(StateAwaitingConfirmation, EventSelection, s.onConfirmation)
	b.on(StateAwaitingRating, EventRatingGiven, s.onRating)
	for _, st := range liveStates {
		b.otherwise(st, s.reprompt)
	}
	return b.build(liveStates)
}

func (s *Service) reprompt(_ context.Context, t turn) (step, error) {
	return step{reply: reply(correction(textNotUnderstood, t.stage))}, nil
}

func (s *Service) refuse(reason string, t turn) (step, error) {
	return step{reply: reply(correction(reason, t.stage))}, nil
}

func closeUnavailable() step {
	return step{close: true, reply: reply(unavailable())}
}

func (s *Service) onStart(ctx context.Context, t turn) (step, error) {
	if !s.clock.Current().Available {
		return step{reply: reply(unavailable())}, nil
	}
	initial, err := s.initialStage(ctx, t.riderID)
	if err != nil {
		return step{}, err
	}
	return step{next: initial, reply: reply(text(textGreeting), promptFor(initial))}, nil
}

func (s *Service) onCancel(_ context.Context, t turn) (step, error) {
	t.log.Info("order cancelled", zap.String("state", t.stage.State().String()))
	return step{close: true, reply: reply(cancelled(t.event.Option == OptionRestart))}, nil
}

func (s *Service) onContact(ctx context.Context, t turn) (step, error) {
	c := t.event.Contact
	p := profile.Profile{
		RiderID:       t.riderID,
		DisplayName:   strings.TrimSpace(c.Name),
		ContactHandle: strings.TrimPrefix(strings.TrimSpace(c.Handle), "@"),
		Phone:         profile.NormalizePhone(c.Phone),
	}
	if err := p.Validate(); err != nil {
		return s.refuse(textInvalidPhone, t)
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		if errors.Is(err, profile.ErrInvalidProfile) {
			return s.refuse(textInvalidPhone, t)
		}
		return step{}, fmt.Errorf("save profile: %w", err)
	}
	t.log.Info("rider profile saved")
	return step{next: AwaitingPickup{}, reply: reply(askPickup())}, nil
}

func (s *Service) onPickup(_ context.Context, t turn) (step, error) {
	if !s.clock.Current().Available {
		return closeUnavailable(), nil
	}
	p := t.event.Location
	if err := location.Validate(p); err != nil {
		return s.refuse(textInvalidPoint, t)
	}
	return step{next: AwaitingDestination{Pickup: p}, reply: reply(askDestination())}, nil
}

func (s *Service) onDestinationText(ctx context.Context, t turn) (step, error) {
	st := t.stage.(AwaitingDestination)
	dest := strings.TrimSpace(t.event.Text)
	if dest == "" {
		return s.reprompt(ctx, t)
	}
	return step{
		next:  AwaitingWaypoints{Pickup: st.Pickup, DestinationText: dest},
		reply: reply(askWaypoints()),
	}, nil
}

func (s *Service) onDestinationPoint(_ context.Context, t turn) (step, error) {
	st := t.stage.(AwaitingDestination)
	p := t.event.Location
	if err := location.Validate(p); err != nil {
		return s.refuse(textInvalidPoint, t)
	}
	return step{
		next:  AwaitingWaypoints{Pickup: st.Pickup, DestinationText: p.String(), DestinationCoord: &p},
		reply: reply(askWaypoints()),
	}, nil
}

func (s *Service) onWaypointText(ctx context.Context, t turn) (step, error) {
	addr := strings.TrimSpace(t.event.Text)
	if addr == "" {
		return s.reprompt(ctx, t)
	}
	return s.addWaypoint(t, Waypoint{Text: addr})
}

func (s *Service) onWaypointPoint(_ context.Context, t turn) (step, error) {
	p := t.event.Location
	if err := location.Validate(p); err != nil {
		return s.refuse(textInvalidPoint, t)
	}
	return s.addWaypoint(t, Waypoint{Text: p.String(), Point: p, Resolved: true})
}

func (s *Service) addWaypoint(t turn, w Waypoint) (step, error) {
	st := t.stage.(AwaitingWaypoints)
	if len(st.Waypoints) >= MaxWaypoints {
		return step{reply: reply(waypointCap())}, nil
	}
	wps := make([]Waypoint, len(st.Waypoints), len(st.Waypoints)+1)
	copy(wps, st.Waypoints)
	st.Waypoints = append(wps, w)
	return step{next: st, reply: reply(waypointAdded(len(st.Waypoints)))}, nil
}

func (s *Service) onWaypointSelection(ctx context.Context, t turn) (step, error) {
	st := t.stage.(AwaitingWaypoints)
	switch t.event.Option {
	case OptionWaypointsDone:
		return s.resolveRoute(ctx, t, st)
	case OptionChangeAddress:
		return step{next: AwaitingDestination{Pickup: st.Pickup}, reply: reply(askDestination())}, nil
	default:
		return s.reprompt(ctx, t)
	}
}

// resolveRoute geocodes pending addresses, routes pickup -> waypoints ->
// destination and quotes every class. Any collaborator failure keeps the
// rider in AwaitingWaypoints with a retry prompt.
func (s *Service) resolveRoute(ctx context.Context, t turn, st AwaitingWaypoints) (step, error) {
	rctx, cancel := context.WithTimeout(ctx, s.opts.RouteTimeout)
	defer cancel()

	trip := Trip{Pickup: st.Pickup, DestinationText: st.DestinationText}
	if st.DestinationCoord != nil {
		trip.Destination = *st.DestinationCoord
	} else {
		dest, err := s.geocoder.Geocode(rctx, st.DestinationText)
		if err != nil {
			return s.routeRetry(t, err, st.DestinationText), nil
		}
		trip.Destination = dest
	}
	for _, w := range st.Waypoints {
		if w.Resolved {
			trip.Waypoints = append(trip.Waypoints, w.Point)
			continue
		}
		p, err := s.geocoder.Geocode(rctx, w.Text)
		if err != nil {
			return s.routeRetry(t, err, w.Text), nil
		}
		trip.Waypoints = append(trip.Waypoints, p)
	}

	route, err := s.router.Route(rctx, trip.Stops())
	if err != nil {
		return s.routeRetry(t, err, ""), nil
	}
	if route.DistanceKm < 0 || math.IsNaN(route.DistanceKm) || math.IsInf(route.DistanceKm, 0) {
		return s.routeRetry(t, fmt.Errorf("%w: distance %v", maps.ErrNoRoute, route.DistanceKm), ""), nil
	}
	trip.DistanceKm = route.DistanceKm
	trip.DurationMin = route.DurationMin
	trip.Path = route.Path

	avail := s.clock.Current()
	if !avail.Available {
		return closeUnavailable(), nil
	}
	quotes, err := s.pricing.QuoteAll(trip.DistanceKm, avail.Surge)
	if err != nil {
		return step{}, fmt.Errorf("%w: quote %.3f km at x%.2f: %v", ErrInvariant, trip.DistanceKm, avail.Surge, err)
	}
	t.log.Debug("route quoted",
		zap.Float64("distance_km", trip.DistanceKm),
		zap.Float64("surge", avail.Surge),
		zap.String("window", avail.Window),
	)

	next := AwaitingCarClass{Trip: trip, Quotes: quotes, Surge: avail.Surge}
	var effects []Effect
	if img := s.renderMap(rctx, t, trip); img != nil {
		effects = append(effects, ShowImage{Image: img, Caption: trip.DestinationText})
	}
	effects = append(effects, chooseClass(trip, quotes, avail.Surge))
	return step{next: next, reply: Reply{Effects: effects}}, nil
}

func (s *Service) routeRetry(t turn, err error, address string) step {
	t.log.Warn("route resolution failed", zap.String("address", address), zap.Error(err))
	detail := ""
	if address != "" && errors.Is(err, maps.ErrNotFound) {
		detail = fmt.Sprintf(textAddressMissing, address)
	}
	return step{reply: reply(routeFailed(detail))}
}

// renderMap is best effort; a failure only omits the preview.
func (s *Service) renderMap(ctx context.Context, t turn, trip Trip) []byte {
	if s.maps == nil {
		return nil
	}
	img, err := s.maps.Render(ctx, trip.Stops(), trip.Path)
	if err != nil {
		t.log.Warn("map preview failed", zap.Error(err))
		return nil
	}
	return img
}

func (s *Service) onCarClass(ctx context.Context, t turn) (step, error) {
	st := t.stage.(AwaitingCarClass)
	raw, ok := strings.CutPrefix(t.event.Option, classOptionPrefix)
	if !ok {
		return s.reprompt(ctx, t)
	}
	class := pricing.CarClass(raw)
	tariff, ok := s.pricing.Tariff(class)
	if !ok {
		return s.reprompt(ctx, t)
	}
	if st.Trip.DistanceKm < 0 || math.IsNaN(st.Trip.DistanceKm) {
		return step{}, fmt.Errorf("%w: pricing without a resolved distance", ErrInvariant)
	}

	avail := s.clock.Current()
	if !avail.Available {
		return closeUnavailable(), nil
	}
	price, err := s.pricing.Price(class, st.Trip.DistanceKm, avail.Surge)
	if err != nil {
		return step{}, fmt.Errorf("%w: price %s: %v", ErrInvariant, class, err)
	}

	effects := make([]Effect, 0, 2)
	for _, q := range st.Quotes {
		if q.Class == class && q.Price != price {
			effects = append(effects, text(textPriceUpdated))
			t.log.Debug("quote recomputed",
				zap.String("car_class", string(class)),
				zap.Int64("quoted", q.Price.Amount),
				zap.Int64("price", price.Amount),
			)
		}
	}
	effects = append(effects, confirmOrder(tariff.Label, price))
	next := AwaitingConfirmation{Trip: st.Trip, CarClass: class, Label: tariff.Label, Price: price, Surge: avail.Surge}
	return step{next: next, reply: Reply{Effects: effects}}, nil
}

func (s *Service) onConfirmation(ctx context.Context, t turn) (step, error) {
	st := t.stage.(AwaitingConfirmation)
	switch t.event.Option {
	case OptionConfirm:
		if !s.clock.Current().Available {
			return closeUnavailable(), nil
		}
		orderID := s.opts.NewOrderID()
		t.log.Info("order confirmed",
			zap.String("order_id", orderID.String()),
			zap.String("driver_id", s.opts.DriverID.String()),
			zap.String("car_class", string(st.CarClass)),
			zap.Int64("price", st.Price.Amount),
			zap.Float64("surge", st.Surge),
			zap.Float64("distance_km", st.Trip.DistanceKm),
			zap.Int("waypoints", len(st.Trip.Waypoints)),
		)
		next := AwaitingRating{OrderID: orderID, DriverID: s.opts.DriverID, CarClass: st.CarClass, Price: st.Price}
		return step{next: next, reply: reply(text(fmt.Sprintf(textConfirmed, orderID)), askRating())}, nil
	case OptionChangeAddress:
		return step{next: AwaitingDestination{Pickup: st.Trip.Pickup}, reply: reply(askDestination())}, nil
	default:
		return s.reprompt(ctx, t)
	}
}

func (s *Service) onRating(ctx context.Context, t turn) (step, error) {
	st := t.stage.(AwaitingRating)
	agg, err := s.ratings.RecordScore(ctx, s.ratingSubject(t.riderID, st.DriverID), t.event.Score)
	if errors.Is(err, rating.ErrInvalidScore) {
		return s.refuse(textInvalidRating, t)
	}
	if err != nil {
		return step{}, fmt.Errorf("record rating: %w", err)
	}
	return step{close: true, reply: reply(text(fmt.Sprintf(textThanks, agg.Average())))}, nil
}

func newOrderID() types.ID {
	return types.ID(uuid.NewString())
}
