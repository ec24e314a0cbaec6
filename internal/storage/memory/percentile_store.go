package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// PercentileStore is an in-memory implementation of storage.PercentileStore.
type PercentileStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PercentileRank // keyed by (pair_id, date)
}

// NewPercentileStore creates a new in-memory percentile store.
func NewPercentileStore() *PercentileStore {
	return &PercentileStore{
		data: make(map[string]*domain.PercentileRank),
	}
}

// InsertBulk adds multiple ranks. Fails entire batch on duplicate.
func (s *PercentileStore) InsertBulk(_ context.Context, ranks []*domain.PercentileRank) error {
	if len(ranks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(ranks))

	for _, r := range ranks {
		if r == nil || r.PairID == "" {
			return storage.ErrInvalidInput
		}
		key := positioningKey(r.PairID, r.Date)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range ranks {
		rankCopy := *r
		s.data[positioningKey(r.PairID, r.Date)] = &rankCopy
	}

	return nil
}

// GetByPair retrieves all ranks for a pair, ordered by date ASC.
func (s *PercentileStore) GetByPair(_ context.Context, pairID string) ([]*domain.PercentileRank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PercentileRank
	for _, r := range s.data {
		if r.PairID == pairID {
			rankCopy := *r
			result = append(result, &rankCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// LatestDate returns the most recent stored date for a pair.
func (s *PercentileStore) LatestDate(_ context.Context, pairID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, r := range s.data {
		if r.PairID == pairID && (!found || r.Date.After(latest)) {
			latest = r.Date
			found = true
		}
	}

	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.PercentileStore = (*PercentileStore)(nil)
