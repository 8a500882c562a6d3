package valuation

import (
	"fmt"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/multiples"
	"github.com/wonny/valuescan/pkg/logger"
)

const (
	haircut         = 0.95 // fixed conservatism haircut
	leveragePenalty = 0.05
)

// Config holds model switches
type Config struct {
	// ClampLeverage floors the leverage factor at 0.
	// Off by default: extreme D/E then yields a negative fair value, flagged on the result.
	ClampLeverage bool
}

// Engine blends sector-multiple estimators into a fair value
// ⭐ SSOT: 적정가 계산은 여기서만
type Engine struct {
	table  *multiples.Table
	cfg    Config
	logger *logger.Logger
}

// NewEngine creates a valuation engine over a shared, read-only multiples table
func NewEngine(table *multiples.Table, cfg Config, log *logger.Logger) *Engine {
	return &Engine{
		table:  table,
		cfg:    cfg,
		logger: log.WithModule("valuation"),
	}
}

// Table returns the multiples table in use
func (e *Engine) Table() *multiples.Table {
	return e.table
}

// Evaluate computes the blended fair value for one snapshot.
// Returns a KindInsufficientData failure ("absent") when price <= 0 or no estimator applies.
// Never panics on bad numeric input; scoring problems only zero the scores.
func (e *Engine) Evaluate(snap *contracts.FundamentalSnapshot) (*contracts.ValuationResult, error) {
	if snap == nil {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, "", contracts.ErrNotFound)
	}

	// Sanitize works on a private copy; callers may share snap across goroutines
	s := *snap
	s.Earnings = append([]contracts.EarningsRecord(nil), snap.Earnings...)
	s.Sanitize()

	if s.Price <= 0 {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, s.ID, contracts.ErrNoPrice)
	}

	// 1. Sector multiples
	m, sector := e.table.Resolve(s.Sector)

	// 2. Estimators + renormalised blend
	estimators := Estimate(&s, m)
	blended, ok := Blend(estimators)
	if !ok {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, s.ID, contracts.ErrNoEstimators)
	}
	blended = contracts.Finite(blended)

	// 3. Risk adjustments: PEG, then leverage
	fair := blended
	if m.PEG > 0 {
		fair /= m.PEG
	}
	fair *= e.leverageFactor(s.DebtToEquity)

	// 4. Haircut
	fair = contracts.Finite(fair * haircut)

	// 5. Gap vs price
	diff := fair - s.Price

	result := &contracts.ValuationResult{
		ID:           s.ID,
		CurrentPrice: s.Price,
		BlendedValue: blended,
		FairValue:    fair,
		DiffAbsolute: diff,
		DiffPercent:  contracts.Finite(diff / s.Price * 100),
		Sector:       displaySector(s.Sector, sector),
		ModelCount:   len(estimators),
		Estimators:   renormalise(estimators),
	}
	if fair <= 0 {
		result.Flags = append(result.Flags, contracts.FlagNegativeFairValue)
	}

	// Scoring failure must not discard the valuation
	score, err := ScoreSurprise(&s, m.GrowthRate)
	if err != nil {
		result.ScoreError = err.Error()
		e.logger.WithFields(map[string]interface{}{
			"security_id": s.ID,
			"error":       err.Error(),
		}).Debug("Surprise scoring indeterminate")
	}
	result.SurpriseScore = score.Surprise
	result.MissScore = score.Miss

	e.logger.WithFields(map[string]interface{}{
		"security_id": s.ID,
		"sector":      sector,
		"models":      result.ModelCount,
		"fair_value":  fair,
		"diff_pct":    result.DiffPercent,
	}).Debug("Evaluated security")

	return result, nil
}

func (e *Engine) leverageFactor(debtToEquity float64) float64 {
	f := 1 - leveragePenalty*debtToEquity/100
	if e.cfg.ClampLeverage && f < 0 {
		return 0
	}
	return f
}

// renormalise rewrites weights to the share actually applied
func renormalise(in []contracts.EstimatorValue) []contracts.EstimatorValue {
	used := 0.0
	for _, e := range in {
		used += e.Weight
	}
	out := make([]contracts.EstimatorValue, len(in))
	for i, e := range in {
		out[i] = e
		if used > 0 {
			out[i].Weight = e.Weight / used
		}
	}
	return out
}

// displaySector keeps the upstream label when present, else the table sector used
func displaySector(raw, resolved string) string {
	if raw != "" {
		return raw
	}
	return resolved
}

// Summary is a compact one-line summary (CLI, logs)
func Summary(r *contracts.ValuationResult) string {
	return fmt.Sprintf("%s price=%.2f fair=%.2f diff=%+.2f%% models=%d surprise=%d miss=%d",
		r.ID, r.CurrentPrice, r.FairValue, r.DiffPercent, r.ModelCount, r.SurpriseScore, r.MissScore)
}
