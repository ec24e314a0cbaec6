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

// PositioningStore is an in-memory implementation of storage.PositioningStore.
type PositioningStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PositioningObservation // keyed by (pair_id, week_ending_date)
}

// NewPositioningStore creates a new in-memory positioning store.
func NewPositioningStore() *PositioningStore {
	return &PositioningStore{
		data: make(map[string]*domain.PositioningObservation),
	}
}

func positioningKey(pairID string, weekEnding time.Time) string {
	return fmt.Sprintf("%s|%s", pairID, weekEnding.Format("2006-01-02"))
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *PositioningStore) InsertBulk(_ context.Context, obs []*domain.PositioningObservation) error {
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
		key := positioningKey(o.PairID, o.WeekEndingDate)

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
		s.data[positioningKey(o.PairID, o.WeekEndingDate)] = &obsCopy
	}

	return nil
}

// GetByPair retrieves all observations for a pair, ordered by week_ending_date ASC.
func (s *PositioningStore) GetByPair(_ context.Context, pairID string) ([]*domain.PositioningObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositioningObservation
	for _, o := range s.data {
		if o.PairID == pairID {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekEndingDate.Before(result[j].WeekEndingDate)
	})

	return result, nil
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *PositioningStore) GetByDateRange(_ context.Context, pairID string, start, end time.Time) ([]*domain.PositioningObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositioningObservation
	for _, o := range s.data {
		if o.PairID == pairID && !o.WeekEndingDate.Before(start) && !o.WeekEndingDate.After(end) {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekEndingDate.Before(result[j].WeekEndingDate)
	})

	return result, nil
}

// LatestDate returns the most recent stored week-ending date for a pair.
func (s *PositioningStore) LatestDate(_ context.Context, pairID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, o := range s.data {
		if o.PairID == pairID && (!found || o.WeekEndingDate.After(latest)) {
			latest = o.WeekEndingDate
			found = true
		}
	}

	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.PositioningStore = (*PositioningStore)(nil)
