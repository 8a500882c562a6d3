package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // fail this many times before succeeding
	calls    int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob_Duplicate(t *testing.T) {
	s := New(logger.NewNop())
	job := &countingJob{name: "warm", schedule: "0 0 5 * * *"}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job))
	assert.Equal(t, []string{"warm"}, s.GetAllJobs())
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))
	assert.Empty(t, s.GetAllJobs())
}

func TestRunJob_RetriesThenSucceeds(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(2, time.Millisecond)
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
}

func TestRunJob_FailsAfterRetries(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(1, time.Millisecond)
	job := &countingJob{name: "broken", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)
	assert.Equal(t, int32(2), atomic.LoadInt32(&job.calls))

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	assert.Len(t, history.GetFailedResults(), 1)
}

func TestRunJob_Unknown(t *testing.T) {
	s := New(logger.NewNop())
	_, err := s.RunJob("missing")
	assert.Error(t, err)
	assert.Error(t, s.RemoveJob("missing"))
}

func TestScheduledExecution(t *testing.T) {
	s := New(logger.NewNop())
	job := &countingJob{name: "tick", schedule: "@every 1s"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.calls) >= 1
	}, 3*time.Second, 50*time.Millisecond)
	assert.NotNil(t, s.GetJobStats()["tick"].NextRun)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Empty(t, h.GetLatestResults(0))
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
	assert.Equal(t, 0.0, (&JobHistory{}).GetSuccessRate())
}
