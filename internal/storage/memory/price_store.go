package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// PriceStore is an in-memory implementation of storage.PriceStore.
type PriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceObservation // keyed by (pair_id, date)
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{
		data: make(map[string]*domain.PriceObservation),
	}
}

func priceKey(pairID string, date time.Time) string {
	return fmt.Sprintf("%s|%s", pairID, date.Format("2006-01-02"))
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *PriceStore) InsertBulk(_ context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(obs))

	for _, o := range obs {
		if o == nil || o.PairID == "" {
			return storage.ErrInvalidInput
		}
		key := priceKey(o.PairID, o.Date)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, o := range obs {
		obsCopy := *o
		s.data[priceKey(o.PairID, o.Date)] = &obsCopy
	}

	return nil
}

// GetByPair retrieves all observations for a pair, ordered by date ASC.
func (s *PriceStore) GetByPair(_ context.Context, pairID string) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.data {
		if o.PairID == pairID {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *PriceStore) GetByDateRange(_ context.Context, pairID string, start, end time.Time) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.data {
		if o.PairID == pairID && !o.Date.Before(start) && !o.Date.After(end) {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// LatestDate returns the most recent stored date for a pair.
func (s *PriceStore) LatestDate(_ context.Context, pairID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, o := range s.data {
		if o.PairID == pairID && (!found || o.Date.After(latest)) {
			latest = o.Date
			found = true
		}
	}

	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.PriceStore = (*PriceStore)(nil)
