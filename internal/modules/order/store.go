// README: Rider session persistence. Memory for single-process runs, Redis when sessions must survive restarts.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/types"
)

// Session is the live conversation state of one rider.
type Session struct {
	RiderID   types.ID
	Stage     Stage
	UpdatedAt time.Time
}

// SessionStore keeps at most one session per rider. Get reports ok=false for
// a rider without a session.
type SessionStore interface {
	Get(ctx context.Context, riderID types.ID) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, riderID types.ID) error
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[types.ID]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[types.ID]Session)}
}

func (m *MemorySessionStore) Get(_ context.Context, riderID types.ID) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[riderID]
	return s, ok, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s Session) error {
	if s.RiderID == "" || s.Stage == nil {
		return ErrBadRequest
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.RiderID] = s
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, riderID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, riderID)
	return nil
}

// Len is the number of live sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RedisSessionStore stores each session as a JSON document that expires after
// ttl of inactivity.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl, prefix: "flytaxi:session:"}
}

func (r *RedisSessionStore) key(riderID types.ID) string {
	return r.prefix + string(riderID)
}

func (r *RedisSessionStore) Get(ctx context.Context, riderID types.ID) (Session, bool, error) {
	data, err := r.client.Get(ctx, r.key(riderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("redis get session: %w", err)
	}
	sess, err := decodeSession(riderID, data)
	if err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

// decodeSession parses a stored record. Every failure wraps ErrCorruptSession.
func decodeSession(riderID types.ID, data []byte) (Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Session{}, fmt.Errorf("%w: decode: %w", ErrCorruptSession, err)
	}
	stage, err := rec.stage()
	if err != nil {
		return Session{}, err
	}
	return Session{RiderID: riderID, Stage: stage, UpdatedAt: rec.UpdatedAt}, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s Session) error {
	if s.RiderID == "" || s.Stage == nil {
		return ErrBadRequest
	}
	rec, err := recordFromStage(s.Stage)
	if err != nil {
		return err
	}
	rec.UpdatedAt = s.UpdatedAt
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.RiderID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, riderID types.ID) error {
	if err := r.client.Del(ctx, r.key(riderID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// sessionRecord is the flat storage form of a Stage. Fields not used by the
// recorded state are left zero.
type sessionRecord struct {
	State            string           `json:"state"`
	Pickup           *types.Point     `json:"pickup,omitempty"`
	DestinationText  string           `json:"destination_text,omitempty"`
	DestinationCoord *types.Point     `json:"destination_coord,omitempty"`
	Waypoints        []Waypoint       `json:"waypoints,omitempty"`
	Trip             *Trip            `json:"trip,omitempty"`
	Quotes           []pricing.Quote  `json:"quotes,omitempty"`
	Surge            float64          `json:"surge,omitempty"`
	CarClass         pricing.CarClass `json:"car_class,omitempty"`
	Label            string           `json:"label,omitempty"`
	Price            *types.Money     `json:"price,omitempty"`
	OrderID          types.ID         `json:"order_id,omitempty"`
	DriverID         types.ID         `json:"driver_id,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func recordFromStage(st Stage) (sessionRecord, error) {
	rec := sessionRecord{State: st.State().String()}
	switch v := st.(type) {
	case AwaitingPhone, AwaitingPickup:
	case AwaitingDestination:
		rec.Pickup = &v.Pickup
	case AwaitingWaypoints:
		rec.Pickup = &v.Pickup
		rec.DestinationText = v.DestinationText
		rec.DestinationCoord = v.DestinationCoord
		rec.Waypoints = v.Waypoints
	case AwaitingCarClass:
		rec.Trip = &v.Trip
		rec.Quotes = v.Quotes
		rec.Surge = v.Surge
	case AwaitingConfirmation:
		rec.Trip = &v.Trip
		rec.CarClass = v.CarClass
		rec.Label = v.Label
		rec.Price = &v.Price
		rec.Surge = v.Surge
	case AwaitingRating:
		rec.OrderID = v.OrderID
		rec.DriverID = v.DriverID
		rec.CarClass = v.CarClass
		rec.Price = &v.Price
	default:
		return sessionRecord{}, fmt.Errorf("%w: unknown stage %T", ErrInvariant, st)
	}
	return rec, nil
}

func (rec sessionRecord) stage() (Stage, error) {
	missing := func(field string) error {
		return fmt.Errorf("%w: stored %s session has no %s", ErrCorruptSession, rec.State, field)
	}
	switch rec.State {
	case StateAwaitingPhone.String():
		return AwaitingPhone{}, nil
	case StateAwaitingPickup.String():
		return AwaitingPickup{}, nil
	case StateAwaitingDestination.String():
		if rec.Pickup == nil {
			return nil, missing("pickup")
		}
		return AwaitingDestination{Pickup: *rec.Pickup}, nil
	case StateAwaitingWaypoints.String():
		if rec.Pickup == nil {
			return nil, missing("pickup")
		}
		if len(rec.Waypoints) > MaxWaypoints {
			return nil, fmt.Errorf("%w: %d waypoints", ErrCorruptSession, len(rec.Waypoints))
		}
		return AwaitingWaypoints{
			Pickup:           *rec.Pickup,
			DestinationText:  rec.DestinationText,
			DestinationCoord: rec.DestinationCoord,
			Waypoints:        rec.Waypoints,
		}, nil
	case StateAwaitingCarClass.String():
		if rec.Trip == nil {
			return nil, missing("trip")
		}
		return AwaitingCarClass{Trip: *rec.Trip, Quotes: rec.Quotes, Surge: rec.Surge}, nil
	case StateAwaitingConfirmation.String():
		if rec.Trip == nil || rec.Price == nil || rec.CarClass == "" {
			return nil, missing("trip or price")
		}
		return AwaitingConfirmation{Trip: *rec.Trip, CarClass: rec.CarClass, Label: rec.Label, Price: *rec.Price, Surge: rec.Surge}, nil
	case StateAwaitingRating.String():
		if rec.OrderID == "" || rec.Price == nil {
			return nil, missing("order")
		}
		return AwaitingRating{OrderID: rec.OrderID, DriverID: rec.DriverID, CarClass: rec.CarClass, Price: *rec.Price}, nil
	default:
		return nil, fmt.Errorf("%w: state %q", ErrCorruptSession, rec.State)
	}
}
