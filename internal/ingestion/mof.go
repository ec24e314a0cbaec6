package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"fx-regime-lab/internal/domain"
)

// Published MOF Japan JGB yield-curve CSV locations. The historical
// file runs to the end of the previous month; the current file covers
// the running month only.
const (
	DefaultMOFHistoricalURL = "https://www.mof.go.jp/english/policy/jgbs/reference/interest_rate/historical/jgbcme_all.csv"
	DefaultMOFCurrentURL    = "https://www.mof.go.jp/english/policy/jgbs/reference/interest_rate/jgbcme.csv"
)

// MOFSource fetches daily JGB yields from the Japanese Ministry of
// Finance CSV files. Implements YieldSource.
//
// The files are Shift-JIS encoded with a Japanese title line before the
// header, and the two files overlap at month boundaries; the current
// file wins on overlapping dates.
type MOFSource struct {
	historicalURL string
	currentURL    string
	columns       map[string]string // instrument_id -> tenor column, e.g. "JP_10Y" -> "10Y"
	fetcher       *httpFetcher
}

// NewMOFSource creates a MOF yield source. columns maps instrument ids
// to tenor column headers in the CSV.
func NewMOFSource(historicalURL, currentURL string, columns map[string]string, opts ...FetcherOption) *MOFSource {
	if historicalURL == "" {
		historicalURL = DefaultMOFHistoricalURL
	}
	if currentURL == "" {
		currentURL = DefaultMOFCurrentURL
	}
	return &MOFSource{
		historicalURL: historicalURL,
		currentURL:    currentURL,
		columns:       columns,
		fetcher:       newHTTPFetcher(opts...),
	}
}

var _ YieldSource = (*MOFSource)(nil)

var mofDatePattern = regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`)

// Fetch returns observations for an instrument within [from, to].
// Downloads both files on every call; the files are small and the
// provider has no incremental API.
func (s *MOFSource) Fetch(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.YieldObservation, error) {
	column, ok := s.columns[instrumentID]
	if !ok {
		return nil, fmt.Errorf("mof: %w: %s", ErrUnknownInstrument, instrumentID)
	}

	historical, err := s.fetchFile(ctx, s.historicalURL, column)
	if err != nil {
		return nil, fmt.Errorf("mof historical: %w", err)
	}
	current, err := s.fetchFile(ctx, s.currentURL, column)
	if err != nil {
		return nil, fmt.Errorf("mof current: %w", err)
	}

	// Current-month rows override historical ones on overlap.
	byDate := make(map[time.Time]float64, len(historical)+len(current))
	for _, p := range historical {
		byDate[p.Date] = p.Value
	}
	for _, p := range current {
		byDate[p.Date] = p.Value
	}

	var obs []*domain.YieldObservation
	for date, value := range byDate {
		if date.Before(from) || date.After(to) {
			continue
		}
		obs = append(obs, &domain.YieldObservation{
			InstrumentID: instrumentID,
			Date:         date,
			Value:        value,
		})
	}

	return obs, nil
}

// fetchFile downloads one CSV and extracts (date, value) for a tenor
// column. Non-date rows (title line, footers, blanks) and non-numeric
// cells ("-" on holidays) are skipped.
func (s *MOFSource) fetchFile(ctx context.Context, url, column string) ([]domain.Point, error) {
	body, err := s.fetcher.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("decode shift-jis: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(decoded)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	colIdx := -1
	var points []domain.Point
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		if colIdx < 0 {
			// Still looking for the header row.
			if strings.TrimSpace(record[0]) == "Date" {
				for i, h := range record {
					if strings.TrimSpace(h) == column {
						colIdx = i
						break
					}
				}
				if colIdx < 0 {
					return nil, fmt.Errorf("%w: column %q not found", ErrMalformedPayload, column)
				}
			}
			continue
		}
		if !mofDatePattern.MatchString(strings.TrimSpace(record[0])) {
			continue
		}
		if colIdx >= len(record) {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[colIdx]), 64)
		if err != nil {
			continue
		}
		date, err := time.Parse("2006/1/2", strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		points = append(points, domain.Point{Date: domain.Day(date), Value: value})
	}
	if colIdx < 0 {
		return nil, fmt.Errorf("%w: header row not found", ErrMalformedPayload)
	}

	return points, nil
}
