package valuation

import (
	"math"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/multiples"
)

// Base blend weights, in estimator order
var weights = map[string]float64{
	contracts.EstimatorTrailingPE: 0.30,
	contracts.EstimatorForwardPE:  0.25,
	contracts.EstimatorBook:       0.15,
	contracts.EstimatorRevenue:    0.15,
	contracts.EstimatorEV:         0.15,
	contracts.EstimatorDDM:        0.05,
}

// Cost of equity = riskFree + beta * equityRiskPremium (fixed model)
const (
	riskFree          = 0.03
	equityRiskPremium = 0.06
	defaultBeta       = 1.0
)

// Estimate computes every applicable estimator for a snapshot.
// Inapplicable estimators are omitted; Weight carries the base weight.
func Estimate(s *contracts.FundamentalSnapshot, m multiples.Multiples) []contracts.EstimatorValue {
	out := make([]contracts.EstimatorValue, 0, 6)
	add := func(name string, v float64) {
		out = append(out, contracts.EstimatorValue{Name: name, Value: v, Weight: weights[name]})
	}

	// 1. Trailing earnings
	trailing, hasTrailing := 0.0, false
	if s.TrailingEPS > 0 {
		trailing, hasTrailing = positive(s.TrailingEPS*m.CurrentPE)
		if hasTrailing {
			add(contracts.EstimatorTrailingPE, trailing)
		}
	}

	// 2. Forward earnings
	forward, hasForward := 0.0, false
	if s.ForwardEPS > 0 {
		forward, hasForward = positive(s.ForwardEPS*m.ForwardPE)
		if hasForward {
			add(contracts.EstimatorForwardPE, forward)
		}
	}

	// 3. Book value
	if s.BookValuePerShare > 0 {
		if v, ok := positive(s.BookValuePerShare * m.PB); ok {
			add(contracts.EstimatorBook, v)
		}
	}

	// 4. Revenue (rps 없으면 0이므로 제외)
	if s.RevenuePerShare > 0 {
		if v, ok := positive(s.RevenuePerShare * m.PS); ok {
			add(contracts.EstimatorRevenue, v)
		}
	}

	// 5. Enterprise value: may legitimately be 0 when net debt exceeds EBITDA value
	if s.SharesOutstanding > 0 {
		v := contracts.Finite((s.EBITDA*m.EVEBITDA - s.NetDebt()) / s.SharesOutstanding)
		add(contracts.EstimatorEV, math.Max(0, v))
	}

	// 6. Dividend discount, falling back to the earnings estimators
	if v, ok := dividendDiscount(s, m); ok {
		add(contracts.EstimatorDDM, v)
	} else if hasTrailing || hasForward {
		sum, n := 0.0, 0.0
		if hasTrailing {
			sum, n = sum+trailing, n+1
		}
		if hasForward {
			sum, n = sum+forward, n+1
		}
		add(contracts.EstimatorDDM, sum/n)
	}

	return out
}

// dividendDiscount is the Gordon growth value, when the model is well-defined
func dividendDiscount(s *contracts.FundamentalSnapshot, m multiples.Multiples) (float64, bool) {
	retention := 1 - s.PayoutRatio

	growth := m.GrowthRate
	if s.ReturnOnEquity > 0 {
		growth = retention * s.ReturnOnEquity
	}

	beta := s.Beta
	if beta == 0 {
		beta = defaultBeta
	}
	costOfEquity := riskFree + beta*equityRiskPremium

	if !(costOfEquity > growth && growth > 0 && s.TrailingEPS > 0) {
		return 0, false
	}
	return positive(s.TrailingEPS * retention / (costOfEquity - growth))
}

// Blend returns the weighted average of estimators, renormalised by the weights used.
// ok is false when no estimator carries weight.
func Blend(estimators []contracts.EstimatorValue) (float64, bool) {
	sum, used := 0.0, 0.0
	for _, e := range estimators {
		sum += e.Value * e.Weight
		used += e.Weight
	}
	if used <= 0 {
		return 0, false
	}
	return sum / used, true
}

func positive(v float64) (float64, bool) {
	v = contracts.Finite(v)
	return v, v > 0
}
