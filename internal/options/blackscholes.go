package options

import (
	"math"

	"github.com/wonny/valuescan/internal/contracts"
)

// BlackScholes prices a European option.
// Degenerate inputs (T <= 0, sigma <= 0, S <= 0, K <= 0) and non-finite results yield 0.
func BlackScholes(S, K, T, r, sigma float64, typ contracts.OptionType) float64 {
	if T <= 0 || sigma <= 0 || S <= 0 || K <= 0 {
		return 0
	}
	if !finite(S, K, T, r, sigma) {
		return 0
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := math.Exp(-r * T)

	var price float64
	switch typ {
	case contracts.Call:
		price = S*normCDF(d1) - K*discount*normCDF(d2)
	case contracts.Put:
		price = K*discount*normCDF(-d2) - S*normCDF(-d1)
	default:
		return 0
	}

	// 반올림 오차로 인한 미세 음수 제거
	if !finite(price) || price < 0 {
		return 0
	}
	return price
}

// Divergence = (theoretical - market) / market * 100, 0 when market <= 0
func Divergence(theoretical, market float64) float64 {
	if market <= 0 || !finite(theoretical, market) {
		return 0
	}
	return (theoretical - market) / market * 100
}

// normCDF is the standard normal cumulative distribution
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
