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

// YieldStore is an in-memory implementation of storage.YieldStore.
type YieldStore struct {
	mu   sync.RWMutex
	data map[string]*domain.YieldObservation // keyed by (instrument_id, date)
}

// NewYieldStore creates a new in-memory yield store.
func NewYieldStore() *YieldStore {
	return &YieldStore{
		data: make(map[string]*domain.YieldObservation),
	}
}

func yieldKey(instrumentID string, date time.Time) string {
	return fmt.Sprintf("%s|%s", instrumentID, date.Format("2006-01-02"))
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *YieldStore) InsertBulk(_ context.Context, obs []*domain.YieldObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(obs))

	for _, o := range obs {
		if o == nil || o.InstrumentID == "" {
			return storage.ErrInvalidInput
		}
		key := yieldKey(o.InstrumentID, o.Date)

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
		s.data[yieldKey(o.InstrumentID, o.Date)] = &obsCopy
	}

	return nil
}

// GetByInstrument retrieves all observations for an instrument, ordered by date ASC.
func (s *YieldStore) GetByInstrument(_ context.Context, instrumentID string) ([]*domain.YieldObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.YieldObservation
	for _, o := range s.data {
		if o.InstrumentID == instrumentID {
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
func (s *YieldStore) GetByDateRange(_ context.Context, instrumentID string, start, end time.Time) ([]*domain.YieldObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.YieldObservation
	for _, o := range s.data {
		if o.InstrumentID == instrumentID && !o.Date.Before(start) && !o.Date.After(end) {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// LatestDate returns the most recent stored date for an instrument.
func (s *YieldStore) LatestDate(_ context.Context, instrumentID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, o := range s.data {
		if o.InstrumentID == instrumentID && (!found || o.Date.After(latest)) {
			latest = o.Date
			found = true
		}
	}

	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.YieldStore = (*YieldStore)(nil)
