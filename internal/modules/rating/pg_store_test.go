package rating

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flytaxi/internal/infra/pgtest"
)

func TestPGStore_RecordAndSlide(t *testing.T) {
	pool := pgtest.Start(t)
	ctx := context.Background()
	svc := NewService(NewPGStore(pool), nil)

	avg, err := svc.CurrentAverage(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, NeutralAverage, avg)

	for _, s := range []int{5, 4, 5, 3, 5} {
		_, err := svc.RecordScore(ctx, driver, s)
		require.NoError(t, err)
	}
	avg, err = svc.CurrentAverage(ctx, driver)
	require.NoError(t, err)
	assert.InDelta(t, 4.4, avg, 1e-9)

	for i := 0; i < WindowSize; i++ {
		_, err := svc.RecordScore(ctx, driver, 2)
		require.NoError(t, err)
	}
	agg, err := svc.Aggregate(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, WindowSize, agg.Count)
	assert.Equal(t, 2*WindowSize, agg.Sum)
	require.NoError(t, agg.Check())
}

func TestPGStore_ConcurrentWriters(t *testing.T) {
	pool := pgtest.Start(t)
	ctx := context.Background()
	svc := NewService(NewPGStore(pool), nil)

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordScore(ctx, "d-concurrent", 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	agg, err := svc.Aggregate(ctx, "d-concurrent")
	require.NoError(t, err)
	assert.Equal(t, writers, agg.Count)
	assert.Equal(t, 3*writers, agg.Sum)
}
