package options

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/pkg/logger"
)

func TestBlackScholes_KnownValues(t *testing.T) {
	// Hull: S=42, K=40, T=0.5, r=0.10, σ=0.20 → call 4.76, put 0.81
	assert.InDelta(t, 4.76, BlackScholes(42, 40, 0.5, 0.10, 0.20, contracts.Call), 0.01)
	assert.InDelta(t, 0.81, BlackScholes(42, 40, 0.5, 0.10, 0.20, contracts.Put), 0.01)
}

func TestBlackScholes_PutCallParity(t *testing.T) {
	S, K, T, r, sigma := 100.0, 95.0, 0.75, 0.04, 0.3
	call := BlackScholes(S, K, T, r, sigma, contracts.Call)
	put := BlackScholes(S, K, T, r, sigma, contracts.Put)
	assert.InDelta(t, S-K*math.Exp(-r*T), call-put, 1e-9)
}

func TestBlackScholes_ConvergesToIntrinsic(t *testing.T) {
	const T = 1e-8
	tests := []struct {
		S, K float64
	}{
		{100, 100},
		{110, 100},
		{90, 100},
	}

	for _, tt := range tests {
		call := BlackScholes(tt.S, tt.K, T, 0.04, 0.2, contracts.Call)
		put := BlackScholes(tt.S, tt.K, T, 0.04, 0.2, contracts.Put)
		assert.InDelta(t, math.Max(tt.S-tt.K, 0), call, 1e-2)
		assert.InDelta(t, math.Max(tt.K-tt.S, 0), put, 1e-2)
	}
}

func TestBlackScholes_Degenerate(t *testing.T) {
	tests := []struct {
		name               string
		S, K, T, r, sigma float64
		typ                contracts.OptionType
	}{
		{"zero T", 100, 100, 0, 0.04, 0.2, contracts.Call},
		{"negative T", 100, 100, -1, 0.04, 0.2, contracts.Put},
		{"zero sigma", 100, 100, 1, 0.04, 0, contracts.Call},
		{"negative sigma", 100, 100, 1, 0.04, -0.2, contracts.Put},
		{"zero spot", 0, 100, 1, 0.04, 0.2, contracts.Call},
		{"zero strike", 100, 0, 1, 0.04, 0.2, contracts.Put},
		{"nan rate", 100, 100, 1, math.NaN(), 0.2, contracts.Call},
		{"unknown type", 100, 100, 1, 0.04, 0.2, contracts.OptionType("straddle")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlackScholes(tt.S, tt.K, tt.T, tt.r, tt.sigma, tt.typ)
			assert.Equal(t, 0.0, got)
		})
	}
}

func TestDivergence(t *testing.T) {
	assert.InDelta(t, 25.0, Divergence(5, 4), 1e-9)
	assert.InDelta(t, -50.0, Divergence(2, 4), 1e-9)
	assert.Equal(t, 0.0, Divergence(5, 0))
	assert.Equal(t, 0.0, Divergence(5, -1))
}

func TestScanner_Scan(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	scanner := NewScanner(logger.NewNop()).WithClock(func() time.Time { return now })

	quotes := []contracts.OptionQuote{
		{Underlying: "AAPL", Type: contracts.Call, Strike: 100, Expiration: now.AddDate(0, 0, 73), MarketPrice: 3},
		{Underlying: "AAPL", Type: contracts.Put, Strike: 100, Expiration: now.AddDate(0, 0, 73), MarketPrice: 0},
		{Underlying: "AAPL", Type: contracts.Call, Strike: 100, Expiration: now.AddDate(0, 0, -1), MarketPrice: 1},
	}

	results := scanner.Scan(quotes, 100, 0.25, 0.04)
	require.Len(t, results, 3)

	assert.InDelta(t, 0.2, results[0].YearsToExpiry, 1e-9)
	want := BlackScholes(100, 100, 0.2, 0.04, 0.25, contracts.Call)
	assert.InDelta(t, want, results[0].TheoreticalPrice, 1e-12)
	assert.InDelta(t, (want-3)/3*100, results[0].DivergencePercent, 1e-9)
	assert.Equal(t, 0.25, results[0].VolatilityUsed)

	// market 0 → divergence 0
	assert.Greater(t, results[1].TheoreticalPrice, 0.0)
	assert.Equal(t, 0.0, results[1].DivergencePercent)

	// expired → theoretical 0, divergence -100%
	assert.Equal(t, 0.0, results[2].TheoreticalPrice)
	assert.InDelta(t, -100.0, results[2].DivergencePercent, 1e-9)
}

func TestAnnualizedVolatility(t *testing.T) {
	// alternating ±10% returns: sample std of [0.1,-0.1,0.1,-0.1] ≈ 0.11547
	series := []float64{100, 110, 99, 108.9, 98.01}
	vol := AnnualizedVolatility(series, QuarterlyPeriods, DefaultVolatility)
	assert.InDelta(t, 0.11547*2, vol, 1e-3)

	// too short → fallback
	assert.Equal(t, DefaultVolatility, AnnualizedVolatility([]float64{1, 2, 3}, DailyPeriods, DefaultVolatility))

	// flat → zero dispersion → fallback
	assert.Equal(t, DefaultVolatility, AnnualizedVolatility([]float64{5, 5, 5, 5, 5, 5}, DailyPeriods, DefaultVolatility))

	// zeros are skipped, leaving too few returns
	assert.Equal(t, 0.3, AnnualizedVolatility([]float64{0, 0, 0, 0, 1}, DailyPeriods, 0.3))

	// negative quarters divide by the signed previous value: returns [-2,1,-0.5,1]
	assert.InDelta(t, 2.87228, AnnualizedVolatility([]float64{-1, 1, 2, 1, 2}, QuarterlyPeriods, DefaultVolatility), 1e-4)
}

func TestFilterAndSort(t *testing.T) {
	results := []contracts.OptionValuationResult{
		{OptionQuote: contracts.OptionQuote{ContractSymbol: "C1", Type: contracts.Call}, DivergencePercent: 12},
		{OptionQuote: contracts.OptionQuote{ContractSymbol: "P1", Type: contracts.Put}, DivergencePercent: 40},
		{OptionQuote: contracts.OptionQuote{ContractSymbol: "C2", Type: contracts.Call}, DivergencePercent: 5},
		{OptionQuote: contracts.OptionQuote{ContractSymbol: "C3", Type: contracts.Call}, DivergencePercent: 30},
	}

	all := Filter(results, DefaultFilter)
	SortByDivergence(all)
	require.Len(t, all, 3)
	assert.Equal(t, "P1", all[0].ContractSymbol)
	assert.Equal(t, "C3", all[1].ContractSymbol)
	assert.Equal(t, "C1", all[2].ContractSymbol)

	calls := Filter(results, FilterOptions{Type: contracts.Call})
	assert.Len(t, calls, 3)
}
