package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"fx-regime-lab/internal/domain"
)

// DefaultYahooBaseURL is the public Yahoo Finance chart API endpoint.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// yahooUserAgent is required; the chart API rejects requests without a
// browser-looking User-Agent.
const yahooUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

// YahooSource fetches daily FX closes from the Yahoo Finance chart API.
// Implements PriceSource.
type YahooSource struct {
	baseURL string
	tickers map[string]string // pair_id -> Yahoo ticker, e.g. "USDJPY" -> "JPY=X"
	fetcher *httpFetcher
}

// NewYahooSource creates a Yahoo price source. tickers maps pair ids to
// Yahoo ticker symbols.
func NewYahooSource(baseURL string, tickers map[string]string, opts ...FetcherOption) *YahooSource {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	opts = append([]FetcherOption{WithUserAgent(yahooUserAgent)}, opts...)
	return &YahooSource{
		baseURL: baseURL,
		tickers: tickers,
		fetcher: newHTTPFetcher(opts...),
	}
}

var _ PriceSource = (*YahooSource)(nil)

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns daily closes for a pair within [from, to]. Bars with a
// null close (holidays, partial sessions) are skipped.
func (s *YahooSource) Fetch(ctx context.Context, pairID string, from, to time.Time) ([]*domain.PriceObservation, error) {
	ticker, ok := s.tickers[pairID]
	if !ok {
		return nil, fmt.Errorf("yahoo: %w: %s", ErrUnknownInstrument, pairID)
	}

	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", from.Unix()))
	// period2 is exclusive upstream, push it one day past "to"
	q.Set("period2", fmt.Sprintf("%d", to.AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")

	body, err := s.fetcher.get(ctx, s.baseURL+"/"+url.PathEscape(ticker)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", ticker, err)
	}

	var resp yahooChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("yahoo decode %s: %w", ticker, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", ticker, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w: empty result", ticker, ErrMalformedPayload)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w: no quote block", ticker, ErrMalformedPayload)
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("yahoo %s: %w: %d timestamps vs %d closes",
			ticker, ErrMalformedPayload, len(result.Timestamp), len(closes))
	}

	var obs []*domain.PriceObservation
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}
		date := domain.Day(time.Unix(ts, 0))
		if date.Before(from) || date.After(to) {
			continue
		}
		obs = append(obs, &domain.PriceObservation{
			PairID: pairID,
			Date:   date,
			Price:  *closes[i],
		})
	}

	return obs, nil
}
