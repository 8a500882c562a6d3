package service

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/options"
	"github.com/wonny/valuescan/internal/orchestrator"
	"github.com/wonny/valuescan/internal/universe"
	"github.com/wonny/valuescan/internal/valuation"
	"github.com/wonny/valuescan/pkg/config"
	"github.com/wonny/valuescan/pkg/logger"
)

// topPicks is how many ids a run summary keeps
const topPicks = 10

// UniverseResolver resolves a universe name to ids
type UniverseResolver interface {
	Resolve(ctx context.Context, name string) ([]contracts.SecurityID, universe.Resolution)
}

// Service is the inbound facade used by the CLI, the API and the scheduler
// ⭐ SSOT: 외부 진입점(유니버스/평가/배치/옵션)은 여기서만
type Service struct {
	resolver UniverseResolver
	provider contracts.MarketDataProvider
	engine   *valuation.Engine
	scanner  *options.Scanner
	orch     *orchestrator.Orchestrator
	recorder contracts.RunRecorder
	cfg      config.ScanConfig
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a Service; recorder may be nil (run history disabled)
func New(
	resolver UniverseResolver,
	provider contracts.MarketDataProvider,
	engine *valuation.Engine,
	scanner *options.Scanner,
	orch *orchestrator.Orchestrator,
	recorder contracts.RunRecorder,
	cfg config.ScanConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		resolver: resolver,
		provider: provider,
		engine:   engine,
		scanner:  scanner,
		orch:     orch,
		recorder: recorder,
		cfg:      cfg,
		logger:   log.WithModule("service"),
		now:      time.Now,
	}
}

// Config returns the scan defaults in use
func (s *Service) Config() config.ScanConfig {
	return s.cfg
}

// ResolveUniverse resolves a named universe; never fails
func (s *Service) ResolveUniverse(ctx context.Context, name string) ([]contracts.SecurityID, universe.Resolution) {
	return s.resolver.Resolve(ctx, name)
}

// EvaluateOne fetches fundamentals and values a single security.
// An absent valuation is returned as a KindInsufficientData failure.
func (s *Service) EvaluateOne(ctx context.Context, id contracts.SecurityID) (*contracts.ValuationResult, error) {
	id = contracts.NormalizeID(string(id))

	snap, err := s.provider.Fundamentals(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.ID == "" {
		snap.ID = id
	}

	return s.engine.Evaluate(snap)
}

// RunBatch values every id with bounded parallelism, sorted by DiffPercent (highest first)
func (s *Service) RunBatch(ctx context.Context, ids []contracts.SecurityID, maxParallel int, progress contracts.ProgressFunc) contracts.ScanResult[contracts.ValuationResult] {
	job := contracts.NewScanJob("custom", ids, maxParallel, s.cfg.ItemTimeout)
	return s.RunJob(ctx, job, progress)
}

// RunUniverse resolves a universe and values it
func (s *Service) RunUniverse(ctx context.Context, name string, maxParallel int, progress contracts.ProgressFunc) (contracts.ScanResult[contracts.ValuationResult], universe.Resolution) {
	ids, res := s.ResolveUniverse(ctx, name)
	job := contracts.NewScanJob(res.Name, ids, maxParallel, s.cfg.ItemTimeout)
	return s.RunJob(ctx, job, progress), res
}

// RunJob executes a prepared valuation job and records its summary
func (s *Service) RunJob(ctx context.Context, job contracts.ScanJob, progress contracts.ProgressFunc) contracts.ScanResult[contracts.ValuationResult] {
	result := orchestrator.Run(ctx, s.orch, job.Universe, s.options(job, "valuation", progress),
		func(ctx context.Context, id contracts.SecurityID) (contracts.ValuationResult, error) {
			r, err := s.EvaluateOne(ctx, id)
			if err != nil {
				return contracts.ValuationResult{}, err
			}
			return *r, nil
		})

	SortByDiffPercent(result.Results)

	picks := make([]contracts.SecurityID, 0, topPicks)
	for _, r := range result.Results {
		if len(picks) == topPicks || !r.Undervalued() {
			break
		}
		picks = append(picks, r.ID)
	}
	s.record(ctx, "valuation", job, result.Attempted, result.Succeeded, result.Failed, result.Cancelled, result.StartedAt, result.Duration(), picks)

	return result
}

func (s *Service) options(job contracts.ScanJob, pipeline string, progress contracts.ProgressFunc) orchestrator.Options {
	maxParallel := job.MaxParallel
	if maxParallel < 1 {
		maxParallel = s.cfg.MaxParallel
	}
	timeout := job.ItemTimeout
	if timeout <= 0 {
		timeout = s.cfg.ItemTimeout
	}
	return orchestrator.Options{
		JobID:       job.ID,
		Pipeline:    pipeline,
		MaxParallel: maxParallel,
		ItemTimeout: timeout,
		OnProgress:  progress,
	}
}

// record persists a run summary; history failures are logged, never returned
func (s *Service) record(ctx context.Context, kind string, job contracts.ScanJob, attempted, succeeded, failed int, cancelled bool, started time.Time, took time.Duration, picks []contracts.SecurityID) {
	if s.recorder == nil {
		return
	}

	summary := contracts.RunSummary{
		JobID:     job.ID.String(),
		Kind:      kind,
		Universe:  job.Name,
		Attempted: attempted,
		Succeeded: succeeded,
		Failed:    failed,
		Cancelled: cancelled,
		StartedAt: started,
		Duration:  took,
		TopPicks:  picks,
	}

	// 취소된 배치도 기록은 남김
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.recorder.RecordRun(recordCtx, summary); err != nil {
		s.logger.WithError(err).WithField("job_id", summary.JobID).Warn("Failed to record run")
	}
}

// SortByDiffPercent orders valuations by DiffPercent, highest first (ties by id)
func SortByDiffPercent(results []contracts.ValuationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DiffPercent != results[j].DiffPercent {
			return results[i].DiffPercent > results[j].DiffPercent
		}
		return results[i].ID < results[j].ID
	})
}
