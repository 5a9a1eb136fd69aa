package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flytaxi/internal/infra/pgtest"
)

func TestLoadOrDefault_NoStore(t *testing.T) {
	tariffs, err := LoadOrDefault(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTariffs(), tariffs)
}

func TestStore_LoadTariffs(t *testing.T) {
	pool := pgtest.Start(t)
	ctx := context.Background()
	store := NewStore(pool)

	tariffs, err := LoadOrDefault(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, DefaultTariffs(), tariffs, "empty table falls back to defaults")

	_, err = pool.Exec(ctx, `
		INSERT INTO tariffs (class, label, base_fare, included_km, per_km, currency, sort_order) VALUES
		('comfort', 'Комфорт', 160, 2, 26, 'UAH', 2),
		('standard', 'Стандарт', 125, 2.5, 21, 'UAH', 1)`)
	require.NoError(t, err)

	tariffs, err = LoadOrDefault(ctx, store)
	require.NoError(t, err)
	require.Len(t, tariffs, 2)
	assert.Equal(t, ClassStandard, tariffs[0].Class)
	assert.Equal(t, 2.5, tariffs[0].IncludedKm)
	assert.Equal(t, int64(160), tariffs[1].BaseFare)

	svc, err := NewService(tariffs)
	require.NoError(t, err)
	price, err := svc.Price(ClassStandard, 10, 1.0)
	require.NoError(t, err)
	// 125 + 7.5*21 = 282.5
	assert.Equal(t, int64(282), price.Amount)
}
