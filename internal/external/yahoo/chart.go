package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/valuescan/internal/contracts"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// PriceHistory returns daily closes over the lookback window, oldest first.
// Null closes (halts, holidays) are skipped.
func (c *Client) PriceHistory(ctx context.Context, id contracts.SecurityID, lookback time.Duration) ([]float64, error) {
	now := c.now()
	params := url.Values{
		"period1":  {strconv.FormatInt(now.Add(-lookback).Unix(), 10)},
		"period2":  {strconv.FormatInt(now.Unix(), 10)},
		"interval": {"1d"},
	}

	var resp chartResponse
	path := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(id.String()))
	if err := c.getJSON(ctx, id, path, params, &resp); err != nil {
		return nil, err
	}
	if err := resp.Chart.Error.toFailure(id); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, id, contracts.ErrNotFound)
	}

	raw := resp.Chart.Result[0].Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	for _, v := range raw {
		if v == nil || *v <= 0 {
			continue
		}
		closes = append(closes, *v)
	}
	return closes, nil
}
