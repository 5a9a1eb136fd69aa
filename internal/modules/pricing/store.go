// README: Tariff overrides loaded once from PostgreSQL at startup.
package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadTariffs returns the rows of the tariffs table ordered by sort_order.
// An empty result means no override is configured.
func (s *Store) LoadTariffs(ctx context.Context) ([]Tariff, error) {
	rows, err := s.db.Query(ctx, `
		SELECT class, label, base_fare, included_km, per_km, currency
		FROM tariffs
		ORDER BY sort_order, class`)
	if err != nil {
		return nil, fmt.Errorf("query tariffs: %w", err)
	}
	defer rows.Close()

	var out []Tariff
	for rows.Next() {
		var t Tariff
		var class string
		if err := rows.Scan(&class, &t.Label, &t.BaseFare, &t.IncludedKm, &t.PerKm, &t.Currency); err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}
		t.Class = CarClass(class)
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadOrDefault prefers the stored table and falls back to DefaultTariffs.
func LoadOrDefault(ctx context.Context, s *Store) ([]Tariff, error) {
	if s == nil || s.db == nil {
		return DefaultTariffs(), nil
	}
	tariffs, err := s.LoadTariffs(ctx)
	if err != nil {
		return nil, err
	}
	if len(tariffs) == 0 {
		return DefaultTariffs(), nil
	}
	return tariffs, nil
}
