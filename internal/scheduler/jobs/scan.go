package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/universe"
	"github.com/wonny/valuescan/pkg/logger"
)

// UniverseRunner runs a valuation batch over a named universe
type UniverseRunner interface {
	RunUniverse(ctx context.Context, name string, maxParallel int, progress contracts.ProgressFunc) (contracts.ScanResult[contracts.ValuationResult], universe.Resolution)
}

// NightlyScanJob values a whole universe after the close
type NightlyScanJob struct {
	runner      UniverseRunner
	universe    string
	schedule    string
	maxParallel int
	logger      *logger.Logger
}

// NewNightlyScanJob creates a new nightly scan job
func NewNightlyScanJob(runner UniverseRunner, name, schedule string, maxParallel int, log *logger.Logger) *NightlyScanJob {
	if schedule == "" {
		schedule = "0 30 21 * * 1-5"
	}
	return &NightlyScanJob{
		runner:      runner,
		universe:    name,
		schedule:    schedule,
		maxParallel: maxParallel,
		logger:      log.WithModule("job.scan"),
	}
}

// Name returns the job name
func (j *NightlyScanJob) Name() string {
	return "nightly_scan_" + j.universe
}

// Schedule returns the cron schedule
func (j *NightlyScanJob) Schedule() string {
	return j.schedule
}

// Run executes the batch. Per-item failures are normal; only an empty or
// unknown universe, or a run with zero successes, is a job failure.
func (j *NightlyScanJob) Run(ctx context.Context) error {
	result, res := j.runner.RunUniverse(ctx, j.universe, j.maxParallel, nil)
	if res.Source == universe.SourceNone {
		return fmt.Errorf("%w: %q", contracts.ErrUnknownUniverse, j.universe)
	}

	j.logger.WithFields(map[string]interface{}{
		"universe":  j.universe,
		"source":    res.Source,
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"cancelled": result.Cancelled,
		"duration":  result.Duration(),
	}).Info("Nightly scan finished")

	if result.Cancelled {
		return ctx.Err()
	}
	if result.Attempted > 0 && result.Succeeded == 0 {
		return fmt.Errorf("nightly scan of %s produced no results (%d failures)", j.universe, result.Failed)
	}
	return nil
}
