// Package volatility computes 30-day realized FX volatility and its
// trailing percentile. The percentile feeds the classifier as the
// external risk-sentiment signal; the classifier itself never computes
// volatility.
package volatility

import (
	"math"

	"fx-regime-lab/internal/domain"
)

const (
	// ReturnWindow is the realized-vol lookback in trading days.
	ReturnWindow = 30

	// AnnualizationDays scales daily stddev to annualized terms.
	AnnualizationDays = 252

	// PercentileWindow is the trailing window for the vol percentile,
	// three years of trading days.
	PercentileWindow = 756

	// PercentileMinObs is the minimum history before a vol percentile
	// is emitted.
	PercentileMinObs = 126
)

// Realized computes the 30-day realized volatility series from daily
// closes: stddev of log returns over the window, annualized, in percent.
// The first ReturnWindow points produce no output. Non-positive prices
// are skipped at the return step.
func Realized(prices []domain.Point) []domain.Point {
	rets := make([]domain.Point, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i].Value <= 0 || prices[i-1].Value <= 0 {
			continue
		}
		rets = append(rets, domain.Point{
			Date:  prices[i].Date,
			Value: math.Log(prices[i].Value / prices[i-1].Value),
		})
	}

	if len(rets) < ReturnWindow {
		return nil
	}

	out := make([]domain.Point, 0, len(rets)-ReturnWindow+1)
	for i := ReturnWindow - 1; i < len(rets); i++ {
		window := rets[i+1-ReturnWindow : i+1]
		out = append(out, domain.Point{
			Date:  rets[i].Date,
			Value: stddev(window) * math.Sqrt(AnnualizationDays) * 100,
		})
	}
	return out
}

// stddev is the sample standard deviation of the window values.
func stddev(points []domain.Point) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, p := range points {
		mean += p.Value
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, p := range points {
		d := p.Value - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
