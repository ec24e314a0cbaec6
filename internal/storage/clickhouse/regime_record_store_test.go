package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

func testRegimeRecord(pairID string, date time.Time) *domain.RegimeRecord {
	return &domain.RegimeRecord{
		PairID:         pairID,
		Date:           date,
		SpreadID:       "US_DE_10Y_spread",
		SpreadTrend:    domain.TrendWidening,
		SpreadChangePP: fptr(0.45),
		PriceChangePct: fptr(-2.1),
		PercentileRank: fptr(97),
		VolPercentile:  fptr(40),
		Label:          domain.RegimePositioningDominant,
		Rule:           "crowded_positioning_confirmed",
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestRegimeRecordStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegimeRecordStore(conn)

	records := []*domain.RegimeRecord{
		testRegimeRecord("EURUSD", utcDay(2024, 1, 18)),
		testRegimeRecord("EURUSD", utcDay(2024, 1, 19)),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByPair(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, got, 2)

	rec := got[1]
	assert.Equal(t, utcDay(2024, 1, 19), rec.Date)
	assert.Equal(t, domain.RegimePositioningDominant, rec.Label)
	assert.Equal(t, "crowded_positioning_confirmed", rec.Rule)
	assert.Equal(t, domain.TrendWidening, rec.SpreadTrend)
	require.NotNil(t, rec.PercentileRank)
	assert.Equal(t, 97.0, *rec.PercentileRank)
}

func TestRegimeRecordStore_NullableFields(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegimeRecordStore(conn)

	rec := &domain.RegimeRecord{
		PairID:      "USDJPY",
		Date:        utcDay(2024, 1, 19),
		SpreadID:    "US_JP_10Y_spread",
		SpreadTrend: domain.TrendFlat,
		Label:       domain.RegimeIndeterminate,
		Rule:        "insufficient_inputs",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.InsertBulk(ctx, []*domain.RegimeRecord{rec}))

	got, err := store.GetByPair(ctx, "USDJPY")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Absent inputs come back nil, never zero.
	assert.Nil(t, got[0].SpreadChangePP)
	assert.Nil(t, got[0].PriceChangePct)
	assert.Nil(t, got[0].PercentileRank)
	assert.Nil(t, got[0].VolPercentile)
}

func TestRegimeRecordStore_GetByDate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegimeRecordStore(conn)

	records := []*domain.RegimeRecord{
		testRegimeRecord("USDJPY", utcDay(2024, 1, 19)),
		testRegimeRecord("EURUSD", utcDay(2024, 1, 19)),
		testRegimeRecord("EURUSD", utcDay(2024, 1, 18)),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByDate(ctx, utcDay(2024, 1, 19))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "EURUSD", got[0].PairID)
	assert.Equal(t, "USDJPY", got[1].PairID)
}

func TestRegimeRecordStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegimeRecordStore(conn)

	rec := testRegimeRecord("EURUSD", utcDay(2024, 1, 19))
	require.NoError(t, store.InsertBulk(ctx, []*domain.RegimeRecord{rec}))

	err := store.InsertBulk(ctx, []*domain.RegimeRecord{rec})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
