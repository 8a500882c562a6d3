package contracts

import (
	"math"
	"strings"
	"time"
)

// SecurityID is an opaque ticker-like identifier (e.g. "AAPL", "0005.HK", "7203.T")
// ⭐ SSOT: 종목 식별자
type SecurityID string

// String implements fmt.Stringer
func (id SecurityID) String() string {
	return string(id)
}

// NormalizeID trims whitespace and upper-cases a raw ticker.
// Dots are replaced with dashes only for plain US share classes ("BRK.B" → "BRK-B").
func NormalizeID(raw string) SecurityID {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if i := strings.LastIndex(s, "."); i > 0 && len(s)-i == 2 && isLetters(s[:i]) {
		s = s[:i] + "-" + s[i+1:]
	}
	return SecurityID(s)
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// IDs converts raw strings into normalized ids, dropping empties
func IDs(raw ...string) []SecurityID {
	out := make([]SecurityID, 0, len(raw))
	for _, r := range raw {
		if id := NormalizeID(r); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// EarningsRecord is one reported quarter
type EarningsRecord struct {
	Date     time.Time `json:"date"`
	Reported float64   `json:"reported"`
	Estimate float64   `json:"estimate"`
}

// Beat reports whether the quarter beat its estimate
func (e EarningsRecord) Beat() bool {
	return e.Reported > e.Estimate
}

// FundamentalSnapshot is the per-security input to valuation.
// A zero value means "absent"; sanitize before use.
// ⭐ SSOT: 밸류에이션 입력 데이터
type FundamentalSnapshot struct {
	ID                SecurityID `json:"id"`
	Name              string     `json:"name,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	Price             float64    `json:"price"`
	TrailingEPS       float64    `json:"trailing_eps"`
	ForwardEPS        float64    `json:"forward_eps"`
	BookValuePerShare float64    `json:"book_value_per_share"`
	RevenuePerShare   float64    `json:"revenue_per_share"`
	EBITDA            float64    `json:"ebitda"`
	SharesOutstanding float64    `json:"shares_outstanding"`
	TotalDebt         float64    `json:"total_debt"`
	TotalCash         float64    `json:"total_cash"`
	Beta              float64    `json:"beta"`
	PayoutRatio       float64    `json:"payout_ratio"`
	ReturnOnEquity    float64    `json:"return_on_equity"`
	DebtToEquity      float64    `json:"debt_to_equity"` // percent, e.g. 150 = 1.5x
	Sector            string     `json:"sector"`

	// auxiliary ratios used by surprise scoring and presentation
	EarningsGrowth      float64 `json:"earnings_growth"`
	RevenueGrowth       float64 `json:"revenue_growth"`
	ShortPercentOfFloat float64 `json:"short_percent_of_float"` // percent units (0-100)
	ProfitMargins       float64 `json:"profit_margins"`
	TrailingPE          float64 `json:"trailing_pe"`
	ForwardPE           float64 `json:"forward_pe"`
	MarketCap           float64 `json:"market_cap"`

	// reported quarters, newest first; NextEPSEstimate is the upcoming quarter's consensus
	Earnings        []EarningsRecord `json:"earnings,omitempty"`
	NextEPSEstimate float64          `json:"next_eps_estimate,omitempty"`
}

// NetDebt = total debt - total cash
func (f *FundamentalSnapshot) NetDebt() float64 {
	return f.TotalDebt - f.TotalCash
}

// Sanitize replaces NaN/Inf numeric fields with 0 (absent)
func (f *FundamentalSnapshot) Sanitize() {
	for _, p := range []*float64{
		&f.Price, &f.TrailingEPS, &f.ForwardEPS, &f.BookValuePerShare, &f.RevenuePerShare,
		&f.EBITDA, &f.SharesOutstanding, &f.TotalDebt, &f.TotalCash, &f.Beta, &f.PayoutRatio,
		&f.ReturnOnEquity, &f.DebtToEquity, &f.EarningsGrowth, &f.RevenueGrowth,
		&f.ShortPercentOfFloat, &f.ProfitMargins, &f.TrailingPE, &f.ForwardPE, &f.MarketCap,
		&f.NextEPSEstimate,
	} {
		*p = Finite(*p)
	}
	for i := range f.Earnings {
		f.Earnings[i].Reported = Finite(f.Earnings[i].Reported)
		f.Earnings[i].Estimate = Finite(f.Earnings[i].Estimate)
	}
}

// Finite maps NaN and ±Inf to 0
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
