package contracts

import (
	"context"
	"time"
)

// MarketDataProvider fetches per-security data from an external source
// ⭐ SSOT: 외부 시세/재무 데이터 인터페이스
type MarketDataProvider interface {
	Fundamentals(ctx context.Context, id SecurityID) (*FundamentalSnapshot, error)
	Expirations(ctx context.Context, id SecurityID) ([]time.Time, error)
	OptionChain(ctx context.Context, id SecurityID, expiration time.Time) ([]OptionQuote, error)
	PriceHistory(ctx context.Context, id SecurityID, lookback time.Duration) ([]float64, error)
	NextEarningsDate(ctx context.Context, id SecurityID) (time.Time, error)
}

// ListingsFetcher fetches a raw listings page (index constituents)
// ⭐ SSOT: 유니버스 원천 페이지 인터페이스
type ListingsFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// RunRecorder persists batch summaries (optional)
type RunRecorder interface {
	RecordRun(ctx context.Context, summary RunSummary) error
}

// RunSummary is the persisted shape of a finished batch
type RunSummary struct {
	JobID     string        `json:"job_id"`
	Kind      string        `json:"kind"` // valuation | options
	Universe  string        `json:"universe"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cancelled bool          `json:"cancelled"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	TopPicks  []SecurityID  `json:"top_picks"`
}
