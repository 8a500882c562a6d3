package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/pkg/redis"
)

const fundamentalsModules = "price,summaryDetail,defaultKeyStatistics,financialData,assetProfile,earningsHistory,earningsTrend"

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	Price *struct {
		RegularMarketPrice rawValue `json:"regularMarketPrice"`
		Currency           string   `json:"currency"`
		ShortName          string   `json:"shortName"`
		LongName           string   `json:"longName"`
		MarketCap          rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail *struct {
		Beta        rawValue `json:"beta"`
		PayoutRatio rawValue `json:"payoutRatio"`
		TrailingPE  rawValue `json:"trailingPE"`
		ForwardPE   rawValue `json:"forwardPE"`
		MarketCap   rawValue `json:"marketCap"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		TrailingEps         rawValue `json:"trailingEps"`
		ForwardEps          rawValue `json:"forwardEps"`
		BookValue           rawValue `json:"bookValue"`
		SharesOutstanding   rawValue `json:"sharesOutstanding"`
		ShortPercentOfFloat rawValue `json:"shortPercentOfFloat"`
	} `json:"defaultKeyStatistics"`
	FinancialData *struct {
		CurrentPrice    rawValue `json:"currentPrice"`
		TotalDebt       rawValue `json:"totalDebt"`
		TotalCash       rawValue `json:"totalCash"`
		Ebitda          rawValue `json:"ebitda"`
		RevenuePerShare rawValue `json:"revenuePerShare"`
		ReturnOnEquity  rawValue `json:"returnOnEquity"`
		DebtToEquity    rawValue `json:"debtToEquity"`
		EarningsGrowth  rawValue `json:"earningsGrowth"`
		RevenueGrowth   rawValue `json:"revenueGrowth"`
		ProfitMargins   rawValue `json:"profitMargins"`
	} `json:"financialData"`
	AssetProfile *struct {
		Sector string `json:"sector"`
	} `json:"assetProfile"`
	EarningsHistory *struct {
		History []struct {
			EpsActual   rawValue `json:"epsActual"`
			EpsEstimate rawValue `json:"epsEstimate"`
			Quarter     rawValue `json:"quarter"`
		} `json:"history"`
	} `json:"earningsHistory"`
	EarningsTrend *struct {
		Trend []struct {
			Period           string `json:"period"`
			EarningsEstimate struct {
				Avg rawValue `json:"avg"`
			} `json:"earningsEstimate"`
		} `json:"trend"`
	} `json:"earningsTrend"`
	CalendarEvents *struct {
		Earnings struct {
			EarningsDate []rawValue `json:"earningsDate"`
		} `json:"earnings"`
	} `json:"calendarEvents"`
}

func (c *Client) quoteSummary(ctx context.Context, id contracts.SecurityID, modules string) (*quoteSummaryResult, error) {
	var resp quoteSummaryResponse
	path := fmt.Sprintf("/v10/finance/quoteSummary/%s", url.PathEscape(id.String()))
	if err := c.getJSON(ctx, id, path, url.Values{"modules": {modules}}, &resp); err != nil {
		return nil, err
	}
	if err := resp.QuoteSummary.Error.toFailure(id); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, id, contracts.ErrNotFound)
	}
	return &resp.QuoteSummary.Result[0], nil
}

// Fundamentals returns a snapshot for valuation; cached for TTLMedium when Redis is enabled
func (c *Client) Fundamentals(ctx context.Context, id contracts.SecurityID) (*contracts.FundamentalSnapshot, error) {
	cacheKey := redis.FundamentalsKey(id.String())

	var cached contracts.FundamentalSnapshot
	if found, err := c.cache.Get(ctx, cacheKey, &cached); err != nil {
		c.logger.WithError(err).WithField("security_id", id).Debug("Fundamentals cache read failed")
	} else if found {
		return &cached, nil
	}

	res, err := c.quoteSummary(ctx, id, fundamentalsModules)
	if err != nil {
		return nil, err
	}

	snap := toSnapshot(id, res)

	if err := c.cache.Set(ctx, cacheKey, snap, redis.TTLMedium); err != nil {
		c.logger.WithError(err).WithField("security_id", id).Debug("Fundamentals cache write failed")
	}
	return snap, nil
}

// NextEarningsDate returns the next scheduled earnings date, zero when none is announced
func (c *Client) NextEarningsDate(ctx context.Context, id contracts.SecurityID) (time.Time, error) {
	res, err := c.quoteSummary(ctx, id, "calendarEvents")
	if err != nil {
		return time.Time{}, err
	}
	if res.CalendarEvents == nil {
		return time.Time{}, nil
	}

	now := c.now()
	var next time.Time
	for _, d := range res.CalendarEvents.Earnings.EarningsDate {
		t := unixTime(d.Raw)
		if t.IsZero() || t.Before(now.Truncate(24*time.Hour)) {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next, nil
}

func toSnapshot(id contracts.SecurityID, r *quoteSummaryResult) *contracts.FundamentalSnapshot {
	s := &contracts.FundamentalSnapshot{ID: id}

	if p := r.Price; p != nil {
		s.Price = p.RegularMarketPrice.Raw
		s.Currency = p.Currency
		s.Name = p.ShortName
		if s.Name == "" {
			s.Name = p.LongName
		}
		s.MarketCap = p.MarketCap.Raw
	}
	if d := r.SummaryDetail; d != nil {
		s.Beta = d.Beta.Raw
		s.PayoutRatio = d.PayoutRatio.Raw
		s.TrailingPE = d.TrailingPE.Raw
		s.ForwardPE = d.ForwardPE.Raw
		if s.MarketCap == 0 {
			s.MarketCap = d.MarketCap.Raw
		}
	}
	if k := r.DefaultKeyStatistics; k != nil {
		s.TrailingEPS = k.TrailingEps.Raw
		s.ForwardEPS = k.ForwardEps.Raw
		s.BookValuePerShare = k.BookValue.Raw
		s.SharesOutstanding = k.SharesOutstanding.Raw
		// Yahoo는 비율(0.012)로 제공, 내부는 퍼센트 단위
		s.ShortPercentOfFloat = k.ShortPercentOfFloat.Raw * 100
	}
	if f := r.FinancialData; f != nil {
		if s.Price == 0 {
			s.Price = f.CurrentPrice.Raw
		}
		s.TotalDebt = f.TotalDebt.Raw
		s.TotalCash = f.TotalCash.Raw
		s.EBITDA = f.Ebitda.Raw
		s.RevenuePerShare = f.RevenuePerShare.Raw
		s.ReturnOnEquity = f.ReturnOnEquity.Raw
		s.DebtToEquity = f.DebtToEquity.Raw
		s.EarningsGrowth = f.EarningsGrowth.Raw
		s.RevenueGrowth = f.RevenueGrowth.Raw
		s.ProfitMargins = f.ProfitMargins.Raw
	}
	if a := r.AssetProfile; a != nil {
		s.Sector = a.Sector
	}
	if h := r.EarningsHistory; h != nil {
		for _, q := range h.History {
			if q.EpsActual.Raw == 0 && q.EpsEstimate.Raw == 0 {
				continue
			}
			s.Earnings = append(s.Earnings, contracts.EarningsRecord{
				Date:     unixTime(q.Quarter.Raw),
				Reported: q.EpsActual.Raw,
				Estimate: q.EpsEstimate.Raw,
			})
		}
		// newest first
		sort.SliceStable(s.Earnings, func(i, j int) bool {
			return s.Earnings[i].Date.After(s.Earnings[j].Date)
		})
	}
	if t := r.EarningsTrend; t != nil {
		for _, p := range t.Trend {
			if p.Period == "0q" {
				s.NextEPSEstimate = p.EarningsEstimate.Avg.Raw
				break
			}
		}
	}

	s.Sanitize()
	return s
}
