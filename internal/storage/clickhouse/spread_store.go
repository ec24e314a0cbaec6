package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// SpreadStore implements storage.SpreadStore using ClickHouse.
type SpreadStore struct {
	conn *Conn
}

// NewSpreadStore creates a new SpreadStore.
func NewSpreadStore(conn *Conn) *SpreadStore {
	return &SpreadStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SpreadStore = (*SpreadStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (spread_id, date).
func (s *SpreadStore) InsertBulk(ctx context.Context, points []*domain.SpreadPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		spreadID string
		date     time.Time
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.SpreadID, domain.Day(p.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.SpreadID, p.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO spread_points (
			spread_id, date, value, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.SpreadID, domain.Day(p.Date), p.Value, p.CreatedAt,
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

// GetBySpread retrieves all points for a spread, ordered by date ASC.
func (s *SpreadStore) GetBySpread(ctx context.Context, spreadID string) ([]*domain.SpreadPoint, error) {
	query := `
		SELECT spread_id, date, value, created_at
		FROM spread_points
		WHERE spread_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, spreadID)
	if err != nil {
		return nil, fmt.Errorf("query by spread id: %w", err)
	}
	defer rows.Close()

	return scanSpreadPoints(rows)
}

// LatestDate returns the most recent stored date for a spread.
func (s *SpreadStore) LatestDate(ctx context.Context, spreadID string) (time.Time, error) {
	// Aggregates always yield one row; count() distinguishes empty.
	query := `
		SELECT max(date), count() FROM spread_points
		WHERE spread_id = ?
	`

	var latest time.Time
	var count uint64
	err := s.conn.QueryRow(ctx, query, spreadID).Scan(&latest, &count)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest spread date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return domain.Day(latest), nil
}

// exists checks if a point with the given key exists.
func (s *SpreadStore) exists(ctx context.Context, spreadID string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM spread_points
		WHERE spread_id = ? AND date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, spreadID, domain.Day(date)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSpreadPoints scans multiple rows.
func scanSpreadPoints(rows chRows) ([]*domain.SpreadPoint, error) {
	var points []*domain.SpreadPoint

	for rows.Next() {
		var p domain.SpreadPoint

		err := rows.Scan(&p.SpreadID, &p.Date, &p.Value, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan spread point row: %w", err)
		}

		p.Date = domain.Day(p.Date)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spread point rows: %w", err)
	}

	return points, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}
