package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/valuescan/internal/contracts"
)

type optionChainResponse struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"`
			Options          []struct {
				ExpirationDate int64            `json:"expirationDate"`
				Calls          []optionContract `json:"calls"`
				Puts           []optionContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"optionChain"`
}

type optionContract struct {
	ContractSymbol string  `json:"contractSymbol"`
	Strike         float64 `json:"strike"`
	LastPrice      float64 `json:"lastPrice"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Volume         int64   `json:"volume"`
	OpenInterest   int64   `json:"openInterest"`
	Expiration     int64   `json:"expiration"`
}

// marketPrice is the last trade, or the bid/ask midpoint for contracts that have not traded
func (o optionContract) marketPrice() float64 {
	if o.LastPrice > 0 {
		return o.LastPrice
	}
	if o.Bid > 0 && o.Ask > 0 {
		return (o.Bid + o.Ask) / 2
	}
	return 0
}

func (c *Client) optionChain(ctx context.Context, id contracts.SecurityID, params url.Values) (*optionChainResponse, error) {
	var resp optionChainResponse
	path := fmt.Sprintf("/v7/finance/options/%s", url.PathEscape(id.String()))
	if err := c.getJSON(ctx, id, path, params, &resp); err != nil {
		return nil, err
	}
	if err := resp.OptionChain.Error.toFailure(id); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, id, contracts.ErrNotFound)
	}
	return &resp, nil
}

// Expirations lists listed expiration dates, nearest first
func (c *Client) Expirations(ctx context.Context, id contracts.SecurityID) ([]time.Time, error) {
	resp, err := c.optionChain(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(resp.OptionChain.Result[0].ExpirationDates))
	for _, sec := range resp.OptionChain.Result[0].ExpirationDates {
		dates = append(dates, time.Unix(sec, 0).UTC())
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// OptionChain returns calls then puts for one expiration
func (c *Client) OptionChain(ctx context.Context, id contracts.SecurityID, expiration time.Time) ([]contracts.OptionQuote, error) {
	params := url.Values{"date": {strconv.FormatInt(expiration.Unix(), 10)}}
	resp, err := c.optionChain(ctx, id, params)
	if err != nil {
		return nil, err
	}

	var quotes []contracts.OptionQuote
	for _, chain := range resp.OptionChain.Result[0].Options {
		for _, o := range chain.Calls {
			quotes = append(quotes, toQuote(id, contracts.Call, o, chain.ExpirationDate))
		}
		for _, o := range chain.Puts {
			quotes = append(quotes, toQuote(id, contracts.Put, o, chain.ExpirationDate))
		}
	}
	return quotes, nil
}

func toQuote(id contracts.SecurityID, typ contracts.OptionType, o optionContract, chainExpiry int64) contracts.OptionQuote {
	exp := o.Expiration
	if exp == 0 {
		exp = chainExpiry
	}
	return contracts.OptionQuote{
		Underlying:     id,
		ContractSymbol: o.ContractSymbol,
		Type:           typ,
		Strike:         o.Strike,
		Expiration:     time.Unix(exp, 0).UTC(),
		MarketPrice:    o.marketPrice(),
		Volume:         o.Volume,
		OpenInterest:   o.OpenInterest,
	}
}
