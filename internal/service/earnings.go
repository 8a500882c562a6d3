package service

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/orchestrator"
)

// UpcomingEarning is a scheduled report inside the lookahead window
type UpcomingEarning struct {
	ID   contracts.SecurityID `json:"id"`
	Date time.Time            `json:"date"`
}

// UpcomingEarnings returns ids reporting within window (config EarningsWindow when <= 0), soonest first.
// Ids without an announced date are counted as succeeded but not returned.
func (s *Service) UpcomingEarnings(ctx context.Context, ids []contracts.SecurityID, window time.Duration, maxParallel int) ([]UpcomingEarning, contracts.ScanResult[UpcomingEarning]) {
	if window <= 0 {
		window = s.cfg.EarningsWindow
	}
	now := s.now()
	until := now.Add(window)

	job := contracts.NewScanJob("earnings", ids, maxParallel, s.cfg.ItemTimeout)
	result := orchestrator.Run(ctx, s.orch, job.Universe, s.options(job, "earnings", nil),
		func(ctx context.Context, id contracts.SecurityID) (UpcomingEarning, error) {
			date, err := s.provider.NextEarningsDate(ctx, id)
			if err != nil {
				return UpcomingEarning{}, err
			}
			return UpcomingEarning{ID: id, Date: date}, nil
		})

	upcoming := make([]UpcomingEarning, 0, len(result.Results))
	for _, e := range result.Results {
		if e.Date.After(now) && e.Date.Before(until) {
			upcoming = append(upcoming, e)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Date.Before(upcoming[j].Date) })

	return upcoming, result
}

// RankUpcoming keeps valuations of securities with upcoming earnings, highest SurpriseScore first
func RankUpcoming(results []contracts.ValuationResult, upcoming []UpcomingEarning) []contracts.ValuationResult {
	set := make(map[contracts.SecurityID]struct{}, len(upcoming))
	for _, u := range upcoming {
		set[u.ID] = struct{}{}
	}

	out := make([]contracts.ValuationResult, 0, len(upcoming))
	for _, r := range results {
		if _, ok := set[r.ID]; ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SurpriseScore > out[j].SurpriseScore })
	return out
}
