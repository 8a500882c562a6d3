package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/universe"
	"github.com/wonny/valuescan/pkg/logger"
)

// UniverseSource is what the warm job needs from the resolver
type UniverseSource interface {
	Names() []string
	Invalidate(ctx context.Context, names ...string)
	Resolve(ctx context.Context, name string) ([]contracts.SecurityID, universe.Resolution)
}

// UniverseWarmJob refreshes every built-in universe so scans hit a warm cache
// ⭐ SSOT: Universe 갱신 스케줄은 이 Job에서만
type UniverseWarmJob struct {
	source   UniverseSource
	schedule string
	logger   *logger.Logger
}

// NewUniverseWarmJob creates a new universe warm job
func NewUniverseWarmJob(source UniverseSource, schedule string, log *logger.Logger) *UniverseWarmJob {
	if schedule == "" {
		schedule = "0 0 5 * * *"
	}
	return &UniverseWarmJob{
		source:   source,
		schedule: schedule,
		logger:   log.WithModule("job.universe"),
	}
}

// Name returns the job name
func (j *UniverseWarmJob) Name() string {
	return "universe_warm"
}

// Schedule returns the cron schedule
func (j *UniverseWarmJob) Schedule() string {
	return j.schedule
}

// Run drops cached lists and resolves each universe again.
// A universe that only reached its fallback list fails the run so it is retried.
func (j *UniverseWarmJob) Run(ctx context.Context) error {
	var names []string
	for _, n := range j.source.Names() {
		// "all" is a union of the others
		if n != universe.All {
			names = append(names, n)
		}
	}
	j.source.Invalidate(ctx, names...)

	var degraded []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, res := j.source.Resolve(ctx, name)
		j.logger.WithFields(map[string]interface{}{
			"universe": name,
			"source":   res.Source,
			"size":     len(ids),
		}).Info("Universe refreshed")

		if res.Source == universe.SourceFallback {
			degraded = append(degraded, name)
		}
	}

	if len(degraded) > 0 {
		return fmt.Errorf("universes served from fallback: %v", degraded)
	}
	return nil
}
