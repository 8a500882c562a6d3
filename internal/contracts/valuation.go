package contracts

// Estimator names, in blend order
const (
	EstimatorTrailingPE = "trailing_pe"
	EstimatorForwardPE  = "forward_pe"
	EstimatorBook       = "price_to_book"
	EstimatorRevenue    = "price_to_sales"
	EstimatorEV         = "ev_ebitda"
	EstimatorDDM        = "dividend_discount"
)

// Valuation flags
const (
	FlagNegativeFairValue = "negative_fair_value"
)

// EstimatorValue is one model's per-share estimate
type EstimatorValue struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"` // renormalised weight actually applied
}

// ValuationResult is the blended fair value for one security
// ⭐ SSOT: 밸류에이션 결과
type ValuationResult struct {
	ID            SecurityID       `json:"id"`
	CurrentPrice  float64          `json:"current_price"`
	BlendedValue  float64          `json:"blended_value"` // before risk adjustments
	FairValue     float64          `json:"fair_value"`
	DiffAbsolute  float64          `json:"diff_absolute"`
	DiffPercent   float64          `json:"diff_percent"`
	Sector        string           `json:"sector"`
	ModelCount    int              `json:"model_count"`
	SurpriseScore int              `json:"surprise_score"` // 1..5, 0 = indeterminate
	MissScore     int              `json:"miss_score"`     // 1..5, 0 = indeterminate
	ScoreError    string           `json:"score_error,omitempty"`
	Estimators    []EstimatorValue `json:"estimators"`
	Flags         []string         `json:"flags,omitempty"`
}

// Undervalued reports a positive gap between fair value and price ("value bet")
func (v *ValuationResult) Undervalued() bool {
	return v.DiffPercent > 0
}

// HasFlag checks for a valuation flag
func (v *ValuationResult) HasFlag(flag string) bool {
	for _, f := range v.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
