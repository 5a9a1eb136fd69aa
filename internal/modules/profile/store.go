// README: Rider profile stores (in-memory and PostgreSQL).
package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flytaxi/internal/types"
)

// Store is keyed by rider id; there is no delete in core scope.
type Store interface {
	Get(ctx context.Context, riderID types.ID) (Profile, error)
	Upsert(ctx context.Context, p Profile) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[types.ID]Profile
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[types.ID]Profile), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, riderID types.ID) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[riderID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Upsert(_ context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if old, ok := s.profiles[p.RiderID]; ok {
		p.CreatedAt = old.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.profiles[p.RiderID] = p
	return nil
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, riderID types.ID) (Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT rider_id, display_name, contact_handle, phone, created_at, updated_at
		FROM rider_profiles
		WHERE rider_id = $1`, string(riderID))

	var p Profile
	var id string
	err := row.Scan(&id, &p.DisplayName, &p.ContactHandle, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.RiderID = types.ID(id)
	return p, nil
}

func (s *PGStore) Upsert(ctx context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO rider_profiles (rider_id, display_name, contact_handle, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (rider_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			contact_handle = EXCLUDED.contact_handle,
			phone = EXCLUDED.phone,
			updated_at = NOW()`,
		string(p.RiderID), p.DisplayName, p.ContactHandle, p.Phone)
	return err
}
