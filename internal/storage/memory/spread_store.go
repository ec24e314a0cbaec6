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

// SpreadStore is an in-memory implementation of storage.SpreadStore.
type SpreadStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SpreadPoint // keyed by (spread_id, date)
}

// NewSpreadStore creates a new in-memory spread store.
func NewSpreadStore() *SpreadStore {
	return &SpreadStore{
		data: make(map[string]*domain.SpreadPoint),
	}
}

func spreadKey(spreadID string, date time.Time) string {
	return fmt.Sprintf("%s|%s", spreadID, date.Format("2006-01-02"))
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *SpreadStore) InsertBulk(_ context.Context, points []*domain.SpreadPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p == nil || p.SpreadID == "" {
			return storage.ErrInvalidInput
		}
		key := spreadKey(p.SpreadID, p.Date)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[spreadKey(p.SpreadID, p.Date)] = &pointCopy
	}

	return nil
}

// GetBySpread retrieves all points for a spread, ordered by date ASC.
func (s *SpreadStore) GetBySpread(_ context.Context, spreadID string) ([]*domain.SpreadPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SpreadPoint
	for _, p := range s.data {
		if p.SpreadID == spreadID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// LatestDate returns the most recent stored date for a spread.
func (s *SpreadStore) LatestDate(_ context.Context, spreadID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, p := range s.data {
		if p.SpreadID == spreadID && (!found || p.Date.After(latest)) {
			latest = p.Date
			found = true
		}
	}

	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.SpreadStore = (*SpreadStore)(nil)
