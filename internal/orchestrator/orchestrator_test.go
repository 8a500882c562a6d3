package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/metrics"
	"github.com/wonny/valuescan/pkg/logger"
)

func ids(n int) []contracts.SecurityID {
	out := make([]contracts.SecurityID, n)
	for i := range out {
		out[i] = contracts.SecurityID(fmt.Sprintf("SEC%03d", i))
	}
	return out
}

func newTestOrchestrator() *Orchestrator {
	return New(logger.NewNop(), metrics.New())
}

func TestRun_DeterministicFailures(t *testing.T) {
	universe := ids(100)
	failing := map[contracts.SecurityID]bool{}
	for i := 0; i < 100; i += 5 {
		failing[universe[i]] = true
	}

	res := Run(context.Background(), newTestOrchestrator(), universe, Options{MaxParallel: 8, ItemTimeout: time.Second},
		func(ctx context.Context, id contracts.SecurityID) (string, error) {
			if failing[id] {
				return "", contracts.NewFailure(contracts.KindUpstreamUnavailable, id, errors.New("503"))
			}
			return string(id), nil
		})

	assert.Equal(t, 100, res.Attempted)
	assert.Equal(t, 80, res.Succeeded)
	assert.Equal(t, 20, res.Failed)
	assert.Len(t, res.Results, 80)
	assert.Len(t, res.Failures, 20)
	assert.Equal(t, 20, res.FailuresByKind()[contracts.KindUpstreamUnavailable])
	assert.False(t, res.Cancelled)
	assert.NotEqual(t, "", res.JobID.String())
}

func TestRun_NeverExceedsMaxParallel(t *testing.T) {
	tests := []struct {
		name        string
		n           int
		maxParallel int
		itemTimeout time.Duration
		work        time.Duration
		wantOK      int
	}{
		{name: "cooperative", n: 40, maxParallel: 4, work: 5 * time.Millisecond, wantOK: 40},
		// compute ignores ctx and outlives the item timeout
		{name: "abandoned after timeout", n: 12, maxParallel: 2, itemTimeout: 10 * time.Millisecond, work: 60 * time.Millisecond, wantOK: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var active, peak int32

			res := Run(context.Background(), newTestOrchestrator(), ids(tt.n), Options{MaxParallel: tt.maxParallel, ItemTimeout: tt.itemTimeout},
				func(ctx context.Context, id contracts.SecurityID) (int, error) {
					n := atomic.AddInt32(&active, 1)
					defer atomic.AddInt32(&active, -1)
					for {
						p := atomic.LoadInt32(&peak)
						if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
							break
						}
					}
					time.Sleep(tt.work)
					return 1, nil
				})

			assert.Equal(t, tt.n, res.Attempted)
			assert.Equal(t, tt.wantOK, res.Succeeded)
			assert.Equal(t, tt.n-tt.wantOK, res.FailuresByKind()[contracts.KindTimeout])
			assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(tt.maxParallel))
			assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
		})
	}
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	var mu sync.Mutex
	var seen []contracts.Progress

	res := Run(context.Background(), newTestOrchestrator(), ids(30), Options{
		MaxParallel: 6,
		OnProgress: func(p contracts.Progress) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		},
	}, func(ctx context.Context, id contracts.SecurityID) (int, error) {
		if id == "SEC007" {
			return 0, errors.New("boom")
		}
		return 1, nil
	})

	require.Len(t, seen, 30)
	for i, p := range seen {
		assert.Equal(t, i+1, p.Completed)
		assert.Equal(t, 30, p.Total)
		assert.Equal(t, p.Completed, p.Succeeded+p.Failed)
	}
	assert.Equal(t, 29, res.Succeeded)
	assert.Equal(t, contracts.KindInternal, res.Failures[0].Kind)
}

func TestRun_ItemTimeout(t *testing.T) {
	start := time.Now()

	res := Run(context.Background(), newTestOrchestrator(), ids(4), Options{MaxParallel: 4, ItemTimeout: 30 * time.Millisecond},
		func(ctx context.Context, id contracts.SecurityID) (int, error) {
			if id == "SEC000" {
				// ignores ctx entirely
				time.Sleep(2 * time.Second)
				return 1, nil
			}
			return 1, nil
		})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 3, res.Succeeded)
	require.Equal(t, 1, res.Failed)
	assert.Equal(t, contracts.KindTimeout, res.Failures[0].Kind)
	assert.Equal(t, contracts.SecurityID("SEC000"), res.Failures[0].ID)
}

func TestRun_CooperativeTimeout(t *testing.T) {
	res := Run(context.Background(), newTestOrchestrator(), ids(2), Options{MaxParallel: 2, ItemTimeout: 20 * time.Millisecond},
		func(ctx context.Context, id contracts.SecurityID) (int, error) {
			<-ctx.Done()
			return 0, fmt.Errorf("fetch %s: %w", id, ctx.Err())
		})

	assert.Equal(t, 2, res.Failed)
	for _, f := range res.Failures {
		assert.Equal(t, contracts.KindTimeout, f.Kind)
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	res := Run(ctx, newTestOrchestrator(), ids(50), Options{
		MaxParallel: 2,
		ItemTimeout: time.Second,
		OnProgress: func(p contracts.Progress) {
			if p.Completed >= 3 {
				once.Do(cancel)
			}
		},
	}, func(ctx context.Context, id contracts.SecurityID) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Millisecond):
			return 1, nil
		}
	})

	assert.True(t, res.Cancelled)
	assert.Equal(t, 50, res.Attempted)
	assert.Equal(t, res.Attempted, res.Succeeded+res.Failed)
	assert.GreaterOrEqual(t, res.Succeeded, 3)
	assert.Greater(t, res.FailuresByKind()[contracts.KindCancelled], 0)
	assert.Len(t, res.Results, res.Succeeded)
}

func TestRun_PanicIsContained(t *testing.T) {
	res := Run(context.Background(), newTestOrchestrator(), ids(3), Options{MaxParallel: 3},
		func(ctx context.Context, id contracts.SecurityID) (int, error) {
			if id == "SEC001" {
				panic("division by zero")
			}
			return 1, nil
		})

	assert.Equal(t, 2, res.Succeeded)
	require.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Failures[0].Err, "panic")
}

func TestRun_PanickingProgressCallback(t *testing.T) {
	res := Run(context.Background(), newTestOrchestrator(), ids(5), Options{
		MaxParallel: 2,
		OnProgress:  func(p contracts.Progress) { panic("render failed") },
	}, func(ctx context.Context, id contracts.SecurityID) (int, error) {
		return 1, nil
	})

	assert.Equal(t, 5, res.Succeeded)
}

func TestRun_Empty(t *testing.T) {
	res := Run(context.Background(), New(logger.NewNop(), nil), nil, Options{MaxParallel: 0},
		func(ctx context.Context, id contracts.SecurityID) (int, error) {
			t.Fatal("compute must not be called")
			return 0, nil
		})

	assert.Equal(t, 0, res.Attempted)
	assert.Empty(t, res.Results)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}
