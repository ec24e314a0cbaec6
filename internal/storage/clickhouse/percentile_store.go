package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// PercentileStore implements storage.PercentileStore using ClickHouse.
type PercentileStore struct {
	conn *Conn
}

// NewPercentileStore creates a new PercentileStore.
func NewPercentileStore(conn *Conn) *PercentileStore {
	return &PercentileStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PercentileStore = (*PercentileStore)(nil)

// InsertBulk adds multiple ranks. Fails entire batch on duplicate (pair_id, date).
func (s *PercentileStore) InsertBulk(ctx context.Context, ranks []*domain.PercentileRank) error {
	if len(ranks) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		pairID string
		date   time.Time
	}
	seen := make(map[key]struct{})
	for _, r := range ranks {
		k := key{r.PairID, domain.Day(r.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range ranks {
		exists, err := s.exists(ctx, r.PairID, r.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO percentile_ranks (
			pair_id, date, rank_value, window_size, insufficient, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range ranks {
		err = batch.Append(
			r.PairID, domain.Day(r.Date), r.RankValue,
			uint32(r.WindowSize), r.Insufficient, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPair retrieves all ranks for a pair, ordered by date ASC.
func (s *PercentileStore) GetByPair(ctx context.Context, pairID string) ([]*domain.PercentileRank, error) {
	query := `
		SELECT pair_id, date, rank_value, window_size, insufficient, created_at
		FROM percentile_ranks
		WHERE pair_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, pairID)
	if err != nil {
		return nil, fmt.Errorf("query by pair id: %w", err)
	}
	defer rows.Close()

	return scanPercentileRanks(rows)
}

// LatestDate returns the most recent stored date for a pair.
func (s *PercentileStore) LatestDate(ctx context.Context, pairID string) (time.Time, error) {
	// Aggregates always yield one row; count() distinguishes empty.
	query := `
		SELECT max(date), count() FROM percentile_ranks
		WHERE pair_id = ?
	`

	var latest time.Time
	var count uint64
	err := s.conn.QueryRow(ctx, query, pairID).Scan(&latest, &count)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest rank date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return domain.Day(latest), nil
}

// exists checks if a rank with the given key exists.
func (s *PercentileStore) exists(ctx context.Context, pairID string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM percentile_ranks
		WHERE pair_id = ? AND date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, pairID, domain.Day(date)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanPercentileRanks scans multiple rows.
func scanPercentileRanks(rows chRows) ([]*domain.PercentileRank, error) {
	var ranks []*domain.PercentileRank

	for rows.Next() {
		var r domain.PercentileRank
		var windowSize uint32

		err := rows.Scan(
			&r.PairID, &r.Date, &r.RankValue,
			&windowSize, &r.Insufficient, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan percentile rank row: %w", err)
		}

		r.Date = domain.Day(r.Date)
		r.WindowSize = int(windowSize)
		ranks = append(ranks, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate percentile rank rows: %w", err)
	}

	return ranks, nil
}
