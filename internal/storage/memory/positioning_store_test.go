package memory

import (
	"context"
	"errors"
	"testing"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

func TestPositioningStore_InsertAndGet(t *testing.T) {
	store := NewPositioningStore()
	ctx := context.Background()

	obs := []*domain.PositioningObservation{
		{PairID: "EURUSD", WeekEndingDate: day(2024, 1, 9), LongContracts: 110000, ShortContracts: 48000, NetContracts: 62000, OpenInterest: 500000},
		{PairID: "EURUSD", WeekEndingDate: day(2024, 1, 2), LongContracts: 105000, ShortContracts: 44500, NetContracts: 60500, OpenInterest: 490000},
	}
	if err := store.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByPair(ctx, "EURUSD")
	if err != nil {
		t.Fatalf("GetByPair failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got))
	}
	if !got[0].WeekEndingDate.Equal(day(2024, 1, 2)) || got[0].NetContracts != 60500 {
		t.Errorf("first observation: %+v", got[0])
	}
}

func TestPositioningStore_DuplicateWeek(t *testing.T) {
	store := NewPositioningStore()
	ctx := context.Background()

	o := &domain.PositioningObservation{PairID: "EURUSD", WeekEndingDate: day(2024, 1, 2), NetContracts: 60500}
	if err := store.InsertBulk(ctx, []*domain.PositioningObservation{o}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.PositioningObservation{o}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPositioningStore_GetByDateRange(t *testing.T) {
	store := NewPositioningStore()
	ctx := context.Background()

	var obs []*domain.PositioningObservation
	for i := 0; i < 4; i++ {
		obs = append(obs, &domain.PositioningObservation{
			PairID: "USDJPY", WeekEndingDate: day(2024, 1, 2).AddDate(0, 0, 7*i), NetContracts: float64(-1000 * i),
		})
	}
	if err := store.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByDateRange(ctx, "USDJPY", day(2024, 1, 9), day(2024, 1, 16))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got))
	}
}

func TestPositioningStore_LatestDate(t *testing.T) {
	store := NewPositioningStore()
	ctx := context.Background()

	if _, err := store.LatestDate(ctx, "USDJPY"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("empty store: expected ErrNotFound, got %v", err)
	}

	obs := []*domain.PositioningObservation{
		{PairID: "USDJPY", WeekEndingDate: day(2024, 1, 2), NetContracts: -50000},
		{PairID: "USDJPY", WeekEndingDate: day(2024, 1, 9), NetContracts: -52000},
	}
	if err := store.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	latest, err := store.LatestDate(ctx, "USDJPY")
	if err != nil {
		t.Fatalf("LatestDate failed: %v", err)
	}
	if !latest.Equal(day(2024, 1, 9)) {
		t.Errorf("latest: got %v", latest)
	}
}
