package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/options"
	"github.com/wonny/valuescan/internal/orchestrator"
)

// priceHistoryLookback is used when earnings history is too short for a volatility estimate
const priceHistoryLookback = 365 * 24 * time.Hour

// ScanOptions prices calls and puts of the first N expirations of one underlying.
// underlyingPrice <= 0 fetches the current price from fundamentals.
func (s *Service) ScanOptions(ctx context.Context, id contracts.SecurityID, underlyingPrice float64) ([]contracts.OptionValuationResult, error) {
	id = contracts.NormalizeID(string(id))

	snap, err := s.provider.Fundamentals(ctx, id)
	if err != nil && underlyingPrice <= 0 {
		return nil, err
	}
	if underlyingPrice <= 0 {
		underlyingPrice = snap.Price
	}
	if underlyingPrice <= 0 {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, id, contracts.ErrNoPrice)
	}

	expirations, err := s.provider.Expirations(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(expirations) == 0 {
		return nil, contracts.NewFailure(contracts.KindInsufficientData, id, errors.New("no listed options"))
	}
	if n := s.cfg.OptionExpirations; n > 0 && len(expirations) > n {
		expirations = expirations[:n]
	}

	var (
		quotes []contracts.OptionQuote
		errs   []error
	)
	for _, exp := range expirations {
		chain, err := s.provider.OptionChain(ctx, id, exp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			errs = append(errs, err)
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"security_id": id,
				"expiration":  exp.Format("2006-01-02"),
			}).Debug("Option chain unavailable")
			continue
		}
		quotes = append(quotes, chain...)
	}
	if len(quotes) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all option chains failed: %w", errors.Join(errs...))
	}

	vol := s.volatility(ctx, id, snap)
	results := s.scanner.Scan(quotes, underlyingPrice, vol, s.cfg.RiskFreeRate)
	options.SortByDivergence(results)

	return results, nil
}

// volatility estimates sigma from quarterly reported EPS (newest-first records),
// then from a year of daily closes, then falls back to the configured default.
func (s *Service) volatility(ctx context.Context, id contracts.SecurityID, snap *contracts.FundamentalSnapshot) float64 {
	fallback := s.cfg.DefaultVolatility
	if fallback <= 0 {
		fallback = options.DefaultVolatility
	}

	if snap != nil && len(snap.Earnings) > options.MinReturns {
		series := make([]float64, 0, len(snap.Earnings))
		for i := len(snap.Earnings) - 1; i >= 0; i-- {
			series = append(series, snap.Earnings[i].Reported)
		}
		if vol := options.AnnualizedVolatility(series, options.QuarterlyPeriods, 0); vol > 0 {
			return vol
		}
	}

	closes, err := s.provider.PriceHistory(ctx, id, priceHistoryLookback)
	if err != nil {
		s.logger.WithError(err).WithField("security_id", id).Debug("Price history unavailable, using default volatility")
		return fallback
	}
	return options.AnnualizedVolatility(closes, options.DailyPeriods, fallback)
}

// ScanOptionsBatch scans the first OptionTickers ids and returns the filtered, sorted contracts.
// Counts refer to underlyings, not contracts.
func (s *Service) ScanOptionsBatch(ctx context.Context, ids []contracts.SecurityID, maxParallel int, filter options.FilterOptions, progress contracts.ProgressFunc) contracts.ScanResult[contracts.OptionValuationResult] {
	if n := s.cfg.OptionTickers; n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	job := contracts.NewScanJob("options", ids, maxParallel, s.cfg.ItemTimeout)

	perID := orchestrator.Run(ctx, s.orch, job.Universe, s.options(job, "options", progress),
		func(ctx context.Context, id contracts.SecurityID) ([]contracts.OptionValuationResult, error) {
			return s.ScanOptions(ctx, id, 0)
		})

	var flat []contracts.OptionValuationResult
	for _, rs := range perID.Results {
		flat = append(flat, rs...)
	}
	flat = options.Filter(flat, filter)
	options.SortByDivergence(flat)

	result := contracts.ScanResult[contracts.OptionValuationResult]{
		JobID:      perID.JobID,
		Results:    flat,
		Attempted:  perID.Attempted,
		Succeeded:  perID.Succeeded,
		Failed:     perID.Failed,
		Failures:   perID.Failures,
		Cancelled:  perID.Cancelled,
		StartedAt:  perID.StartedAt,
		FinishedAt: perID.FinishedAt,
	}

	picks := make([]contracts.SecurityID, 0, topPicks)
	seen := make(map[contracts.SecurityID]bool)
	for _, r := range flat {
		if len(picks) == topPicks {
			break
		}
		if !seen[r.Underlying] {
			seen[r.Underlying] = true
			picks = append(picks, r.Underlying)
		}
	}
	s.record(ctx, "options", job, result.Attempted, result.Succeeded, result.Failed, result.Cancelled, result.StartedAt, result.Duration(), picks)

	return result
}
