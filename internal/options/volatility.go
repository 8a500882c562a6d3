package options

import "math"

// Defaults for volatility estimation
const (
	DefaultVolatility = 0.2
	MinReturns        = 4
	QuarterlyPeriods  = 4
	DailyPeriods      = 252
)

// AnnualizedVolatility is the sample standard deviation of simple period returns
// scaled by sqrt(periodsPerYear). Falls back when fewer than MinReturns usable returns exist.
// Returns use the signed previous value, so a move out of a negative quarter keeps its sign flip.
func AnnualizedVolatility(series []float64, periodsPerYear, fallback float64) float64 {
	returns := make([]float64, 0, len(series))
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if prev == 0 || !finite(prev, cur) {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) < MinReturns {
		return fallback
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	ss := 0.0
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(len(returns)-1))

	vol := std * math.Sqrt(periodsPerYear)
	if !finite(vol) || vol <= 0 {
		return fallback
	}
	return vol
}
