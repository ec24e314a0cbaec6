package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

func TestYieldStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewYieldStore(pool)

	obs := []*domain.YieldObservation{
		{InstrumentID: "US_2Y", Date: utcDay(2024, 1, 3), Value: 3.44},
		{InstrumentID: "US_2Y", Date: utcDay(2024, 1, 2), Value: 3.43},
		{InstrumentID: "DE_10Y", Date: utcDay(2024, 1, 2), Value: 2.77},
	}
	require.NoError(t, store.InsertBulk(ctx, obs))

	got, err := store.GetByInstrument(ctx, "US_2Y")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, utcDay(2024, 1, 2), got[0].Date)
	assert.Equal(t, 3.43, got[0].Value)
	assert.False(t, got[0].CreatedAt.IsZero(), "created_at should be set by the database")
}

func TestYieldStore_DuplicateKeyRollsBackBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewYieldStore(pool)

	first := []*domain.YieldObservation{
		{InstrumentID: "US_2Y", Date: utcDay(2024, 1, 2), Value: 3.43},
	}
	require.NoError(t, store.InsertBulk(ctx, first))

	batch := []*domain.YieldObservation{
		{InstrumentID: "US_2Y", Date: utcDay(2024, 1, 3), Value: 3.44},
		{InstrumentID: "US_2Y", Date: utcDay(2024, 1, 2), Value: 3.50},
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The healthy row in the failed batch must not survive.
	got, err := store.GetByInstrument(ctx, "US_2Y")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestYieldStore_GetByDateRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewYieldStore(pool)

	var obs []*domain.YieldObservation
	for i := 0; i < 5; i++ {
		obs = append(obs, &domain.YieldObservation{
			InstrumentID: "US_2Y",
			Date:         utcDay(2024, 1, 2).AddDate(0, 0, i),
			Value:        3.40 + float64(i)*0.01,
		})
	}
	require.NoError(t, store.InsertBulk(ctx, obs))

	got, err := store.GetByDateRange(ctx, "US_2Y", utcDay(2024, 1, 3), utcDay(2024, 1, 5))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, utcDay(2024, 1, 3), got[0].Date)
	assert.Equal(t, utcDay(2024, 1, 5), got[2].Date)
}

func TestYieldStore_LatestDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewYieldStore(pool)

	_, err := store.LatestDate(ctx, "US_2Y")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	obs := []*domain.YieldObservation{
		{InstrumentID: "US_2Y", Date: utcDay(2024, 1, 2), Value: 3.43},
		{InstrumentID: "US_2Y", Date: utcDay(2024, 1, 9), Value: 3.47},
	}
	require.NoError(t, store.InsertBulk(ctx, obs))

	latest, err := store.LatestDate(ctx, "US_2Y")
	require.NoError(t, err)
	assert.Equal(t, utcDay(2024, 1, 9), latest)
}
