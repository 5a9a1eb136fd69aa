// README: Order orchestrator. Drives one rider at a time through the ride-ordering conversation.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"flytaxi/internal/logger"
	"flytaxi/internal/maps"
	"flytaxi/internal/modules/availability"
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/modules/profile"
	"flytaxi/internal/modules/rating"
	"flytaxi/internal/types"
)

var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnknownEvent   = errors.New("unknown event kind")
	ErrInvariant      = errors.New("order invariant violated")
	ErrCorruptSession = errors.New("stored session is corrupt")
	ErrMissingDep     = errors.New("order service dependency missing")
)

type ProfileStore interface {
	Get(ctx context.Context, riderID types.ID) (profile.Profile, error)
	Upsert(ctx context.Context, p profile.Profile) error
}

type RatingLedger interface {
	RecordScore(ctx context.Context, subjectID types.ID, score int) (rating.Aggregate, error)
}

type Pricing interface {
	Tariff(class pricing.CarClass) (pricing.Tariff, bool)
	Price(class pricing.CarClass, distanceKm, surge float64) (types.Money, error)
	QuoteAll(distanceKm, surge float64) ([]pricing.Quote, error)
}

type Availability interface {
	Current() availability.Result
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type Router interface {
	Route(ctx context.Context, stops []types.Point) (maps.Route, error)
}

type MapRenderer interface {
	Render(ctx context.Context, stops, path []types.Point) ([]byte, error)
}

// RatingSubject selects whose aggregate a post-trip score updates.
type RatingSubject string

const (
	RateDriver RatingSubject = "driver"
	RateRider  RatingSubject = "rider"
)

// Deps are the collaborators of the orchestrator. Maps and Log may be nil.
type Deps struct {
	Sessions     SessionStore
	Profiles     ProfileStore
	Ratings      RatingLedger
	Pricing      Pricing
	Availability Availability
	Geocoder     Geocoder
	Router       Router
	Maps         MapRenderer
	Log          *zap.Logger
}

type Options struct {
	RouteTimeout  time.Duration
	DriverID      types.ID
	RatingSubject RatingSubject
	// NewOrderID defaults to a random UUID.
	NewOrderID func() types.ID
	Now        func() time.Time
}

type Service struct {
	sessions SessionStore
	profiles ProfileStore
	ratings  RatingLedger
	pricing  Pricing
	clock    Availability
	geocoder Geocoder
	router   Router
	maps     MapRenderer
	log      *zap.Logger

	opts  Options
	locks *riderLocks
	table transitions
}

func NewService(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Sessions == nil:
		return nil, fmt.Errorf("%w: sessions", ErrMissingDep)
	case deps.Profiles == nil:
		return nil, fmt.Errorf("%w: profiles", ErrMissingDep)
	case deps.Ratings == nil:
		return nil, fmt.Errorf("%w: ratings", ErrMissingDep)
	case deps.Pricing == nil:
		return nil, fmt.Errorf("%w: pricing", ErrMissingDep)
	case deps.Availability == nil:
		return nil, fmt.Errorf("%w: availability", ErrMissingDep)
	case deps.Geocoder == nil || deps.Router == nil:
		return nil, fmt.Errorf("%w: geocoder and router", ErrMissingDep)
	}
	if opts.RouteTimeout <= 0 {
		opts.RouteTimeout = 10 * time.Second
	}
	if opts.DriverID == "" {
		opts.DriverID = "flytaxi-demo-driver"
	}
	if opts.RatingSubject == "" {
		opts.RatingSubject = RateDriver
	}
	if opts.NewOrderID == nil {
		opts.NewOrderID = newOrderID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		sessions: deps.Sessions,
		profiles: deps.Profiles,
		ratings:  deps.Ratings,
		pricing:  deps.Pricing,
		clock:    deps.Availability,
		geocoder: deps.Geocoder,
		router:   deps.Router,
		maps:     deps.Maps,
		log:      logger.OrNop(deps.Log),
		opts:     opts,
		locks:    newRiderLocks(),
	}
	table, err := s.buildTransitions()
	if err != nil {
		return nil, err
	}
	s.table = table
	return s, nil
}

// Handle processes one event for riderID and returns what to show the rider.
// Events of one rider are applied one at a time in arrival order; riders do
// not block each other. A non-nil error means an infrastructure failure or an
// invariant violation, never a rider mistake.
func (s *Service) Handle(ctx context.Context, riderID types.ID, ev Event) (Reply, error) {
	if riderID == "" {
		return Reply{}, ErrBadRequest
	}
	if _, ok := s.table[transitionKey{StateAwaitingPickup, ev.Kind}]; !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind)
	}

	unlock := s.locks.Lock(riderID)
	defer unlock()

	log := s.log.With(zap.String("rider_id", riderID.String()), zap.String("event", ev.Kind.String()))

	sess, found, err := s.load(ctx, riderID, log)
	if err != nil {
		return Reply{}, err
	}
	if !found {
		if ev.Kind == EventCancelRequested {
			return reply(cancelled(ev.Option == OptionRestart)), nil
		}
		if !s.clock.Current().Available {
			log.Debug("refused during curfew, no session created")
			return reply(unavailable()), nil
		}
		initial, err := s.initialStage(ctx, riderID)
		if err != nil {
			return Reply{}, err
		}
		sess = Session{RiderID: riderID, Stage: initial}
	}

	from := sess.Stage.State()
	h, ok := s.table[transitionKey{from, ev.Kind}]
	if !ok {
		err := fmt.Errorf("%w: no transition for (%s, %s)", ErrInvariant, from, ev.Kind)
		log.Error("transition table gap", zap.Error(err))
		return Reply{}, err
	}
	out, err := h(ctx, turn{riderID: riderID, stage: sess.Stage, event: ev, log: log})
	if err != nil {
		if errors.Is(err, ErrInvariant) {
			log.Error("order aborted", zap.String("state", from.String()), zap.Error(err))
		}
		return Reply{}, err
	}

	switch {
	case out.close:
		if found {
			if err := s.sessions.Delete(ctx, riderID); err != nil {
				return Reply{}, fmt.Errorf("delete session: %w", err)
			}
		}
		log.Debug("session closed", zap.String("state", from.String()))
	case out.next != nil:
		if err := s.save(ctx, riderID, out.next); err != nil {
			return Reply{}, err
		}
		log.Debug("transition", zap.String("from", from.String()), zap.String("state", out.next.State().String()))
	case !found:
		if err := s.save(ctx, riderID, sess.Stage); err != nil {
			return Reply{}, err
		}
		log.Debug("session created", zap.String("state", from.String()))
	default:
		log.Debug("event refused", zap.String("state", from.String()))
	}
	return out.reply, nil
}

// load reads the rider's session. A corrupt record is dropped and the rider
// starts over as if no session existed.
func (s *Service) load(ctx context.Context, riderID types.ID, log *zap.Logger) (Session, bool, error) {
	sess, found, err := s.sessions.Get(ctx, riderID)
	if errors.Is(err, ErrCorruptSession) {
		log.Error("dropping corrupt session", zap.Error(err))
		if err := s.sessions.Delete(ctx, riderID); err != nil {
			return Session{}, false, fmt.Errorf("delete corrupt session: %w", err)
		}
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}
	return sess, found, nil
}

// State reports the current state of riderID, StateClosed without a session.
// A corrupt session also reads as StateClosed; the next event drops it.
func (s *Service) State(ctx context.Context, riderID types.ID) (State, error) {
	sess, found, err := s.sessions.Get(ctx, riderID)
	if errors.Is(err, ErrCorruptSession) {
		return StateClosed, nil
	}
	if err != nil {
		return 0, err
	}
	if !found {
		return StateClosed, nil
	}
	return sess.Stage.State(), nil
}

func (s *Service) save(ctx context.Context, riderID types.ID, st Stage) error {
	err := s.sessions.Save(ctx, Session{RiderID: riderID, Stage: st, UpdatedAt: s.opts.Now()})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// initialStage skips phone capture for riders with a stored profile.
func (s *Service) initialStage(ctx context.Context, riderID types.ID) (Stage, error) {
	_, err := s.profiles.Get(ctx, riderID)
	switch {
	case err == nil:
		return AwaitingPickup{}, nil
	case errors.Is(err, profile.ErrNotFound):
		return AwaitingPhone{}, nil
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}
}

func (s *Service) ratingSubject(riderID types.ID, driverID types.ID) types.ID {
	if s.opts.RatingSubject == RateRider {
		return riderID
	}
	return driverID
}
