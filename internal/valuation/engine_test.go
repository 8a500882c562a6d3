package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/multiples"
	"github.com/wonny/valuescan/pkg/logger"
)

func newTestEngine(cfg Config) *Engine {
	return NewEngine(multiples.Default(), cfg, logger.NewNop())
}

func TestEvaluate_WorkedExample(t *testing.T) {
	engine := newTestEngine(Config{})

	// Only trailing PE applies; DDM falls back to the trailing estimate.
	res, err := engine.Evaluate(&contracts.FundamentalSnapshot{
		ID:          "TECH",
		Price:       100,
		TrailingEPS: 5,
		Sector:      "Technology",
	})
	require.NoError(t, err)

	assert.InDelta(t, 320.75, res.BlendedValue, 1e-9)
	assert.InDelta(t, 203.14, res.FairValue, 0.005)
	assert.InDelta(t, 103.14, res.DiffPercent, 0.005)
	assert.InDelta(t, 103.14, res.DiffAbsolute, 0.005)
	assert.Equal(t, 2, res.ModelCount)
	assert.Equal(t, "Technology", res.Sector)
	assert.True(t, res.Undervalued())
}

func TestEvaluate_NonPositivePriceIsAbsent(t *testing.T) {
	engine := newTestEngine(Config{})

	for _, price := range []float64{0, -1, -1e9, math.NaN()} {
		res, err := engine.Evaluate(&contracts.FundamentalSnapshot{
			ID: "X", Price: price, TrailingEPS: 5, ForwardEPS: 6, BookValuePerShare: 10,
		})
		assert.Nil(t, res)
		require.Error(t, err)
		assert.True(t, contracts.IsAbsent(err))
		assert.ErrorIs(t, err, contracts.ErrNoPrice)
	}
}

func TestEvaluate_NoApplicableEstimatorIsAbsent(t *testing.T) {
	engine := newTestEngine(Config{})

	res, err := engine.Evaluate(&contracts.FundamentalSnapshot{
		ID:                "EMPTY",
		Price:             50,
		TrailingEPS:       -2,
		ForwardEPS:        0,
		BookValuePerShare: -1,
		RevenuePerShare:   0,
		SharesOutstanding: 0,
		EBITDA:            1e9,
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, contracts.ErrNoEstimators)
	assert.Equal(t, contracts.KindInsufficientData, contracts.KindOf(err))
}

func TestEvaluate_NilSnapshot(t *testing.T) {
	_, err := newTestEngine(Config{}).Evaluate(nil)
	assert.True(t, contracts.IsAbsent(err))
}

func TestBlend_Renormalisation(t *testing.T) {
	pe := contracts.EstimatorValue{Name: contracts.EstimatorTrailingPE, Value: 120, Weight: 0.30}
	fpe := contracts.EstimatorValue{Name: contracts.EstimatorForwardPE, Value: 90, Weight: 0.25}

	got, ok := Blend([]contracts.EstimatorValue{pe, fpe})
	require.True(t, ok)
	assert.InDelta(t, (0.30*120+0.25*90)/0.55, got, 1e-9)

	_, ok = Blend(nil)
	assert.False(t, ok)
}

func TestEstimate_AllModels(t *testing.T) {
	m := multiples.Default().Lookup("Other")
	s := &contracts.FundamentalSnapshot{
		Price:             100,
		TrailingEPS:       4,
		ForwardEPS:        5,
		BookValuePerShare: 20,
		RevenuePerShare:   30,
		EBITDA:            1000,
		SharesOutstanding: 100,
		TotalDebt:         500,
		TotalCash:         100,
		Beta:              1.2,
		PayoutRatio:       0.4,
		ReturnOnEquity:    0.05,
	}

	got := Estimate(s, m)
	byName := map[string]float64{}
	for _, e := range got {
		byName[e.Name] = e.Value
	}

	require.Len(t, got, 6)
	assert.InDelta(t, 4*22.0, byName[contracts.EstimatorTrailingPE], 1e-9)
	assert.InDelta(t, 5*18.0, byName[contracts.EstimatorForwardPE], 1e-9)
	assert.InDelta(t, 20*3.0, byName[contracts.EstimatorBook], 1e-9)
	assert.InDelta(t, 30*2.76, byName[contracts.EstimatorRevenue], 1e-9)
	assert.InDelta(t, (1000*11.0-400)/100, byName[contracts.EstimatorEV], 1e-9)

	// growth = 0.6*0.05 = 0.03, coe = 0.03+1.2*0.06 = 0.102
	assert.InDelta(t, 4*0.6/(0.102-0.03), byName[contracts.EstimatorDDM], 1e-9)
}

func TestEstimate_DDMFallsBackToEarningsMean(t *testing.T) {
	m := multiples.Default().Lookup("Other")

	// roe <= 0 → sector growth 0.10; beta 0 → 1.0 → coe 0.09 < growth → fallback
	s := &contracts.FundamentalSnapshot{Price: 10, TrailingEPS: 2, ForwardEPS: 3}
	got := Estimate(s, m)

	var ddm float64
	for _, e := range got {
		if e.Name == contracts.EstimatorDDM {
			ddm = e.Value
		}
	}
	assert.InDelta(t, (2*22.0+3*18.0)/2, ddm, 1e-9)
}

func TestEstimate_EVFloorsAtZero(t *testing.T) {
	m := multiples.Default().Lookup("Other")
	s := &contracts.FundamentalSnapshot{Price: 10, EBITDA: 10, SharesOutstanding: 10, TotalDebt: 1e6}

	got := Estimate(s, m)
	require.Len(t, got, 1)
	assert.Equal(t, contracts.EstimatorEV, got[0].Name)
	assert.Equal(t, 0.0, got[0].Value)
}

func TestEvaluate_Leverage(t *testing.T) {
	snap := &contracts.FundamentalSnapshot{
		ID: "LEV", Price: 10, TrailingEPS: 1, Sector: "Other", DebtToEquity: 5000,
	}

	// factor = 1 - 0.05*50 = -1.5
	res, err := newTestEngine(Config{}).Evaluate(snap)
	require.NoError(t, err)
	assert.Less(t, res.FairValue, 0.0)
	assert.True(t, res.HasFlag(contracts.FlagNegativeFairValue))
	assert.InDelta(t, 22.0/2.0*-1.5*0.95, res.FairValue, 1e-9)

	clamped, err := newTestEngine(Config{ClampLeverage: true}).Evaluate(snap)
	require.NoError(t, err)
	assert.Equal(t, 0.0, clamped.FairValue)
	assert.Equal(t, -100.0, clamped.DiffPercent)
}

func TestEvaluate_WeightsReported(t *testing.T) {
	res, err := newTestEngine(Config{}).Evaluate(&contracts.FundamentalSnapshot{
		ID: "W", Price: 10, TrailingEPS: 1, ForwardEPS: 1, BookValuePerShare: 1,
	})
	require.NoError(t, err)

	total := 0.0
	for _, e := range res.Estimators {
		total += e.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestEvaluate_NeverPanics(t *testing.T) {
	engine := newTestEngine(Config{})
	values := []float64{0, -1, 1, 1e-300, 1e300, -1e300, math.MaxFloat64, math.Inf(1), math.NaN()}

	for _, v := range values {
		for _, w := range values {
			snap := &contracts.FundamentalSnapshot{
				ID: "FUZZ", Price: w, TrailingEPS: v, ForwardEPS: w, BookValuePerShare: v,
				RevenuePerShare: w, EBITDA: v, SharesOutstanding: w, TotalDebt: v, TotalCash: w,
				Beta: v, PayoutRatio: w, ReturnOnEquity: v, DebtToEquity: w,
				EarningsGrowth: v, ShortPercentOfFloat: w, NextEPSEstimate: v,
				Earnings: []contracts.EarningsRecord{{Reported: v, Estimate: w}},
			}
			assert.NotPanics(t, func() {
				res, err := engine.Evaluate(snap)
				if err == nil {
					assert.False(t, math.IsNaN(res.FairValue))
					assert.False(t, math.IsNaN(res.DiffPercent))
				}
			})
		}
	}
}

func TestEvaluate_LeavesInputUntouched(t *testing.T) {
	snap := &contracts.FundamentalSnapshot{
		ID:          "SHARED",
		Price:       50,
		TrailingEPS: 2,
		Earnings: []contracts.EarningsRecord{
			{Reported: math.NaN(), Estimate: 1},
			{Reported: 1.2, Estimate: math.Inf(1)},
		},
	}

	_, err := newTestEngine(Config{}).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(snap.Earnings[0].Reported))
	assert.True(t, math.IsInf(snap.Earnings[1].Estimate, 1))
}

func TestEvaluate_ScoringFailureKeepsValuation(t *testing.T) {
	res, err := newTestEngine(Config{}).Evaluate(&contracts.FundamentalSnapshot{
		ID:              "ODD",
		Price:           10,
		TrailingEPS:     1,
		ForwardEPS:      5e-324,
		NextEPSEstimate: 1e308,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SurpriseScore)
	assert.Equal(t, 0, res.MissScore)
	assert.NotEmpty(t, res.ScoreError)
	assert.Greater(t, res.FairValue, 0.0)
}

func TestSummary(t *testing.T) {
	s := Summary(&contracts.ValuationResult{ID: "AAPL", CurrentPrice: 100, FairValue: 120, DiffPercent: 20, ModelCount: 3})
	assert.Contains(t, s, "AAPL")
	assert.Contains(t, s, "+20.00%")
}
