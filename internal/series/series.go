// Package series provides the primitives shared by every compute stage:
// ascending-date validation, as-of joins between series of different
// cadence, and trading-day lookback changes.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"fx-regime-lab/internal/domain"
)

// ErrUnsortedSeries is returned when an input series violates the
// ascending-date invariant. Upstream fetchers are expected to deliver
// de-duplicated, date-ascending data; the core validates and fails fast
// instead of re-sorting.
var ErrUnsortedSeries = errors.New("series dates not strictly ascending")

// ValidateAscending checks that dates strictly increase. Duplicate
// dates are a violation too.
func ValidateAscending(points []domain.Point) error {
	for i := 1; i < len(points); i++ {
		if !points[i].Date.After(points[i-1].Date) {
			return fmt.Errorf("%w: %s then %s at index %d",
				ErrUnsortedSeries,
				points[i-1].Date.Format("2006-01-02"),
				points[i].Date.Format("2006-01-02"),
				i)
		}
	}
	return nil
}

// AsOf returns the value at the nearest date prior to or equal to target.
// This is the only sanctioned way to join weekly positioning onto the
// daily trading calendar. Returns ok=false when every observation is
// after target or the series is empty.
func AsOf(points []domain.Point, target time.Time) (float64, bool) {
	i := IndexAsOf(points, target)
	if i < 0 {
		return 0, false
	}
	return points[i].Value, true
}

// IndexAsOf returns the index of the nearest prior-or-equal observation,
// or -1 when none exists. Requires ascending dates.
func IndexAsOf(points []domain.Point, target time.Time) int {
	// First index strictly after target; the answer sits just before it.
	n := sort.Search(len(points), func(i int) bool {
		return points[i].Date.After(target)
	})
	return n - 1
}

// Diff returns points[i].Value - points[i-back].Value. ok=false when the
// lookback predates the start of the series; callers must surface that
// as "n/a", never as zero.
func Diff(points []domain.Point, i, back int) (float64, bool) {
	if i < 0 || i >= len(points) || i-back < 0 {
		return 0, false
	}
	return points[i].Value - points[i-back].Value, true
}

// PctChange returns the percent change from points[i-back] to points[i].
// ok=false when out of range or the base value is zero.
func PctChange(points []domain.Point, i, back int) (float64, bool) {
	if i < 0 || i >= len(points) || i-back < 0 {
		return 0, false
	}
	base := points[i-back].Value
	if base == 0 {
		return 0, false
	}
	return (points[i].Value/base - 1) * 100, true
}

// Last returns the final point, ok=false for an empty series.
func Last(points []domain.Point) (domain.Point, bool) {
	if len(points) == 0 {
		return domain.Point{}, false
	}
	return points[len(points)-1], true
}
