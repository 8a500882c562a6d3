package options

import (
	"time"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/pkg/logger"
)

const daysPerYear = 365.0

// Scanner prices option quotes and measures divergence from market
// ⭐ SSOT: 옵션 이론가 계산은 여기서만
type Scanner struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewScanner creates a scanner using the wall clock
func NewScanner(log *logger.Logger) *Scanner {
	return &Scanner{
		logger: log.WithModule("options"),
		now:    time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Scan computes a theoretical price for every quote.
// Output order follows input order; filtering and sorting are left to the caller.
func (s *Scanner) Scan(quotes []contracts.OptionQuote, underlying, volatility, riskFree float64) []contracts.OptionValuationResult {
	now := s.now()
	out := make([]contracts.OptionValuationResult, 0, len(quotes))
	degenerate := 0

	for _, q := range quotes {
		T := YearsToExpiry(now, q.Expiration)
		theo := BlackScholes(underlying, q.Strike, T, riskFree, volatility, q.Type)
		if theo == 0 {
			degenerate++
		}

		out = append(out, contracts.OptionValuationResult{
			OptionQuote:       q,
			TheoreticalPrice:  theo,
			DivergencePercent: Divergence(theo, q.MarketPrice),
			VolatilityUsed:    volatility,
			YearsToExpiry:     T,
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"quotes":     len(quotes),
		"underlying": underlying,
		"volatility": volatility,
		"zero_theo":  degenerate,
	}).Debug("Scanned option quotes")

	return out
}

// YearsToExpiry is the calendar year fraction from now to expiration (negative when expired)
func YearsToExpiry(now, expiration time.Time) float64 {
	return expiration.Sub(now).Hours() / 24 / daysPerYear
}
