package contracts

import (
	"fmt"
	"strings"
	"time"
)

// OptionType is call or put
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" in any case; anything else is an error
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "calls", "c":
		return Call, nil
	case "put", "puts", "p":
		return Put, nil
	default:
		return "", fmt.Errorf("unknown option type %q", s)
	}
}

// OptionQuote is one listed contract with its market price
type OptionQuote struct {
	Underlying     SecurityID `json:"underlying"`
	ContractSymbol string     `json:"contract_symbol"`
	Type           OptionType `json:"type"`
	Strike         float64    `json:"strike"`
	Expiration     time.Time  `json:"expiration"`
	MarketPrice    float64    `json:"market_price"` // last traded
	Volume         int64      `json:"volume,omitempty"`
	OpenInterest   int64      `json:"open_interest,omitempty"`
}

// OptionValuationResult pairs a quote with its theoretical price
// ⭐ SSOT: 옵션 미스프라이싱 결과
type OptionValuationResult struct {
	OptionQuote
	TheoreticalPrice  float64 `json:"theoretical_price"`
	DivergencePercent float64 `json:"divergence_percent"`
	VolatilityUsed    float64 `json:"volatility_used"`
	YearsToExpiry     float64 `json:"years_to_expiry"`
}
