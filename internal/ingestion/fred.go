package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"fx-regime-lab/internal/domain"
)

// DefaultFREDBaseURL is the public FRED API endpoint.
const DefaultFREDBaseURL = "https://api.stlouisfed.org/fred"

// FREDSource fetches daily US Treasury yields from the FRED
// observations API. Implements YieldSource.
type FREDSource struct {
	baseURL string
	apiKey  string
	series  map[string]string // instrument_id -> FRED series id, e.g. "US_2Y" -> "DGS2"
	fetcher *httpFetcher
}

// NewFREDSource creates a FRED yield source. series maps instrument ids
// to FRED series ids.
func NewFREDSource(baseURL, apiKey string, series map[string]string, opts ...FetcherOption) *FREDSource {
	if baseURL == "" {
		baseURL = DefaultFREDBaseURL
	}
	return &FREDSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		series:  series,
		fetcher: newHTTPFetcher(opts...),
	}
}

var _ YieldSource = (*FREDSource)(nil)

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Fetch returns observations for an instrument within [from, to].
// FRED marks holidays with value "."; those rows are skipped.
func (s *FREDSource) Fetch(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.YieldObservation, error) {
	seriesID, ok := s.series[instrumentID]
	if !ok {
		return nil, fmt.Errorf("fred: %w: %s", ErrUnknownInstrument, instrumentID)
	}

	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", s.apiKey)
	q.Set("file_type", "json")
	q.Set("observation_start", from.Format("2006-01-02"))
	q.Set("observation_end", to.Format("2006-01-02"))

	body, err := s.fetcher.get(ctx, s.baseURL+"/series/observations?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fred fetch %s: %w", seriesID, err)
	}

	var resp fredResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("fred decode %s: %w", seriesID, err)
	}

	var obs []*domain.YieldObservation
	for _, o := range resp.Observations {
		if o.Value == "." || o.Value == "" {
			continue
		}
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return nil, fmt.Errorf("fred parse date %q: %w", o.Date, err)
		}
		value, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("fred parse value %q: %w", o.Value, err)
		}
		obs = append(obs, &domain.YieldObservation{
			InstrumentID: instrumentID,
			Date:         domain.Day(date),
			Value:        value,
		})
	}

	return obs, nil
}
