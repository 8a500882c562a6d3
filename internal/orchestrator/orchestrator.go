package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/metrics"
	"github.com/wonny/valuescan/pkg/logger"
)

// ComputeFunc fetches and computes one security.
// Returning an error (typically a *contracts.Failure) marks the item failed; absent results are errors too.
type ComputeFunc[T any] func(ctx context.Context, id contracts.SecurityID) (T, error)

// Options control one batch
type Options struct {
	JobID       uuid.UUID
	Pipeline    string        // metrics/log label, e.g. "valuation"
	MaxParallel int           // worker count, >= 1
	ItemTimeout time.Duration // 0 = no per-item timeout
	OnProgress  contracts.ProgressFunc
}

// Orchestrator runs bounded-parallel fetch+compute batches
// ⭐ SSOT: 배치 실행(워커 풀)은 여기서만
type Orchestrator struct {
	logger  *logger.Logger
	metrics *metrics.Registry
}

// New creates an Orchestrator; metrics may be nil
func New(log *logger.Logger, m *metrics.Registry) *Orchestrator {
	return &Orchestrator{
		logger:  log.WithModule("orchestrator"),
		metrics: m,
	}
}

type itemResult[T any] struct {
	id    contracts.SecurityID
	value T
	err   error
	took  time.Duration
}

// Run drives compute over every id with at most opts.MaxParallel calls in flight.
// Per-item failures, panics and timeouts are contained; on ctx cancellation queued ids
// are recorded as cancelled and in-flight ones finish (bounded by ItemTimeout).
// Always returns Attempted == len(ids) == Succeeded + Failed.
func Run[T any](ctx context.Context, o *Orchestrator, ids []contracts.SecurityID, opts Options, compute ComputeFunc[T]) contracts.ScanResult[T] {
	if opts.JobID == uuid.Nil {
		opts.JobID = uuid.New()
	}
	if opts.Pipeline == "" {
		opts.Pipeline = "default"
	}
	workers := opts.MaxParallel
	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) && len(ids) > 0 {
		workers = len(ids)
	}

	result := contracts.ScanResult[T]{
		JobID:     opts.JobID,
		Results:   make([]T, 0, len(ids)),
		Attempted: len(ids),
		StartedAt: time.Now(),
	}

	log := o.logger.WithFields(map[string]interface{}{
		"job_id":   opts.JobID.String(),
		"pipeline": opts.Pipeline,
	})
	log.WithFields(map[string]interface{}{
		"total":        len(ids),
		"workers":      workers,
		"item_timeout": opts.ItemTimeout.String(),
	}).Info("Starting batch")

	// 1. Queue every id up front; workers drain until empty
	idCh := make(chan contracts.SecurityID, len(ids))
	for _, id := range ids {
		idCh <- id
	}
	close(idCh)

	resultCh := make(chan itemResult[T], len(ids))

	// 2. Fixed worker pool. A slot is held by the compute goroutine itself,
	// so an abandoned (timed out) call keeps counting until it really returns.
	slots := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			worker(ctx, o, workerID, opts, slots, idCh, resultCh, compute)
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 3. Single collector: sole owner of result, so progress is strictly monotonic
	for r := range resultCh {
		if r.err != nil {
			kind := contracts.KindOf(r.err)
			result.Failed++
			result.Failures = append(result.Failures, contracts.ItemFailure{
				ID:   r.id,
				Kind: kind,
				Err:  r.err.Error(),
			})
			o.metrics.ObserveItem(opts.Pipeline, string(kind), r.took)
		} else {
			result.Succeeded++
			result.Results = append(result.Results, r.value)
			o.metrics.ObserveItem(opts.Pipeline, "success", r.took)
		}

		o.report(opts.OnProgress, contracts.Progress{
			Completed: result.Succeeded + result.Failed,
			Total:     result.Attempted,
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
			Last:      r.id,
		})
	}

	result.FinishedAt = time.Now()
	result.Cancelled = ctx.Err() != nil
	o.metrics.ObserveBatch(opts.Pipeline, result.Cancelled)

	log.WithFields(map[string]interface{}{
		"attempted": result.Attempted,
		"success":   result.Succeeded,
		"failed":    result.Failed,
		"cancelled": result.Cancelled,
		"duration":  result.Duration().String(),
	}).Info("Batch completed")

	return result
}

// worker processes ids until the queue is drained
func worker[T any](ctx context.Context, o *Orchestrator, workerID int, opts Options, slots chan struct{}, idCh <-chan contracts.SecurityID, resultCh chan<- itemResult[T], compute ComputeFunc[T]) {
	for id := range idCh {
		// 취소되면 남은 종목은 실행하지 않고 실패로 기록
		if err := ctx.Err(); err != nil {
			resultCh <- itemResult[T]{
				id:  id,
				err: contracts.NewFailure(contracts.KindCancelled, id, err),
			}
			continue
		}

		// Wait for a free slot; a timed out call may still be holding one
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			resultCh <- itemResult[T]{
				id:  id,
				err: contracts.NewFailure(contracts.KindCancelled, id, ctx.Err()),
			}
			continue
		}

		started := time.Now()
		o.metrics.ItemStarted(opts.Pipeline)
		value, err := runItem(ctx, id, opts.ItemTimeout, compute, func() {
			<-slots
			o.metrics.ItemFinished(opts.Pipeline)
		})

		if err != nil {
			o.logger.WithFields(map[string]interface{}{
				"worker":      workerID,
				"security_id": id,
				"kind":        contracts.KindOf(err),
				"error":       err.Error(),
			}).Debug("Item failed")
		}

		resultCh <- itemResult[T]{id: id, value: value, err: err, took: time.Since(started)}
	}
}

// runItem executes compute in its own goroutine so a call that ignores ctx
// can be abandoned at the deadline. Its late result goes to a buffered channel and is dropped.
// release runs when compute actually returns, which may be after runItem does.
func runItem[T any](ctx context.Context, id contracts.SecurityID, timeout time.Duration, compute ComputeFunc[T], release func()) (T, error) {
	var zero T

	var (
		itemCtx  context.Context
		cancel   context.CancelFunc
		deadline <-chan time.Time
	)
	if timeout > 0 {
		itemCtx, cancel = context.WithTimeout(ctx, timeout)
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	} else {
		itemCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer release()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: contracts.NewFailure(contracts.KindInternal, id, fmt.Errorf("panic: %v", r))}
			}
		}()
		v, err := compute(itemCtx, id)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return zero, classify(id, out.err)
		}
		return out.value, nil
	case <-deadline:
		return zero, contracts.NewFailure(contracts.KindTimeout, id, fmt.Errorf("no result within %s", timeout))
	}
}

// classify wraps bare errors into a Failure carrying the id
func classify(id contracts.SecurityID, err error) error {
	if f, ok := err.(*contracts.Failure); ok {
		if f.ID != "" {
			return f
		}
		return contracts.NewFailure(f.Kind, id, f.Err)
	}
	return contracts.NewFailure(contracts.KindOf(err), id, err)
}

// report invokes the progress callback; a panicking observer never breaks the batch
func (o *Orchestrator) report(fn contracts.ProgressFunc, p contracts.Progress) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithField("panic", fmt.Sprint(r)).Warn("Progress callback panicked")
		}
	}()
	fn(p)
}
