// README: Rating stores; Update is an atomic read-modify-write per subject.
package rating

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flytaxi/internal/types"
)

// Store persists aggregates. Update must run fn with exclusive access to the
// subject's aggregate and persist the result only if fn returns nil.
type Store interface {
	Get(ctx context.Context, subjectID types.ID) (Aggregate, error)
	Update(ctx context.Context, subjectID types.ID, fn func(*Aggregate) error) (Aggregate, error)
}

// MemoryStore keeps aggregates in process, one mutex per subject.
type MemoryStore struct {
	mu    sync.Mutex
	items map[types.ID]*memoryEntry
}

type memoryEntry struct {
	mu  sync.Mutex
	agg Aggregate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[types.ID]*memoryEntry)}
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) entry(id types.ID) *memoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		e = &memoryEntry{agg: Aggregate{SubjectID: id}}
		s.items[id] = e
	}
	return e
}

// Get does not create an entry for an unknown subject.
func (s *MemoryStore) Get(_ context.Context, subjectID types.ID) (Aggregate, error) {
	s.mu.Lock()
	e, ok := s.items[subjectID]
	s.mu.Unlock()
	if !ok {
		return Aggregate{SubjectID: subjectID}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, subjectID types.ID, fn func(*Aggregate) error) (Aggregate, error) {
	e := s.entry(subjectID)
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.agg.clone()
	if err := fn(&next); err != nil {
		return Aggregate{}, err
	}
	e.agg = next
	return next.clone(), nil
}

func (a Aggregate) clone() Aggregate {
	a.History = append([]int(nil), a.History...)
	return a
}

// PGStore keeps one row per subject in the ratings table. Update holds the
// row lock (SELECT ... FOR UPDATE) for the duration of fn.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, subjectID types.ID) (Aggregate, error) {
	agg, err := scanAggregate(s.db.QueryRow(ctx, `
		SELECT history, score_sum, score_count FROM ratings WHERE subject_id = $1`,
		string(subjectID)), subjectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Aggregate{SubjectID: subjectID}, nil
	}
	return agg, err
}

func (s *PGStore) Update(ctx context.Context, subjectID types.ID, fn func(*Aggregate) error) (Aggregate, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Aggregate{}, fmt.Errorf("begin rating tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO ratings (subject_id, history, score_sum, score_count)
		VALUES ($1, '{}', 0, 0)
		ON CONFLICT (subject_id) DO NOTHING`, string(subjectID)); err != nil {
		return Aggregate{}, fmt.Errorf("ensure rating row: %w", err)
	}

	agg, err := scanAggregate(tx.QueryRow(ctx, `
		SELECT history, score_sum, score_count FROM ratings
		WHERE subject_id = $1
		FOR UPDATE`, string(subjectID)), subjectID)
	if err != nil {
		return Aggregate{}, err
	}
	if err := agg.Check(); err != nil {
		return Aggregate{}, err
	}
	if err := fn(&agg); err != nil {
		return Aggregate{}, err
	}

	history := make([]int32, len(agg.History))
	for i, v := range agg.History {
		history[i] = int32(v)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE ratings
		SET history = $2, score_sum = $3, score_count = $4, updated_at = NOW()
		WHERE subject_id = $1`,
		string(subjectID), history, agg.Sum, agg.Count); err != nil {
		return Aggregate{}, fmt.Errorf("update rating row: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Aggregate{}, fmt.Errorf("commit rating tx: %w", err)
	}
	return agg, nil
}

func scanAggregate(row pgx.Row, subjectID types.ID) (Aggregate, error) {
	var history []int32
	agg := Aggregate{SubjectID: subjectID}
	if err := row.Scan(&history, &agg.Sum, &agg.Count); err != nil {
		return Aggregate{}, err
	}
	agg.History = make([]int, len(history))
	for i, v := range history {
		agg.History[i] = int(v)
	}
	return agg, nil
}
