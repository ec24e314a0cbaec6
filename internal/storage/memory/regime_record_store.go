package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// RegimeRecordStore is an in-memory implementation of storage.RegimeRecordStore.
type RegimeRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RegimeRecord // keyed by (pair_id, date)
}

// NewRegimeRecordStore creates a new in-memory regime record store.
func NewRegimeRecordStore() *RegimeRecordStore {
	return &RegimeRecordStore{
		data: make(map[string]*domain.RegimeRecord),
	}
}

// InsertBulk adds multiple records. Fails entire batch on duplicate.
func (s *RegimeRecordStore) InsertBulk(_ context.Context, records []*domain.RegimeRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))

	for _, r := range records {
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

	for _, r := range records {
		recCopy := *r
		s.data[positioningKey(r.PairID, r.Date)] = &recCopy
	}

	return nil
}

// GetByPair retrieves all records for a pair, ordered by date ASC.
func (s *RegimeRecordStore) GetByPair(_ context.Context, pairID string) ([]*domain.RegimeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RegimeRecord
	for _, r := range s.data {
		if r.PairID == pairID {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// GetByDate retrieves the records of every pair for one date.
func (s *RegimeRecordStore) GetByDate(_ context.Context, date time.Time) ([]*domain.RegimeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RegimeRecord
	for _, r := range s.data {
		if r.Date.Equal(date) {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PairID < result[j].PairID
	})

	return result, nil
}

var _ storage.RegimeRecordStore = (*RegimeRecordStore)(nil)
