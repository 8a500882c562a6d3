package contracts

import (
	"time"

	"github.com/google/uuid"
)

// ScanJob describes one batch run
type ScanJob struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"` // universe name or "custom"
	Universe    []SecurityID  `json:"universe"`
	MaxParallel int           `json:"max_parallel"`
	ItemTimeout time.Duration `json:"item_timeout"`
}

// NewScanJob creates a job with a fresh id
func NewScanJob(name string, ids []SecurityID, maxParallel int, itemTimeout time.Duration) ScanJob {
	return ScanJob{
		ID:          uuid.New(),
		Name:        name,
		Universe:    ids,
		MaxParallel: maxParallel,
		ItemTimeout: itemTimeout,
	}
}

// ItemFailure records why one security produced no result
type ItemFailure struct {
	ID   SecurityID  `json:"id"`
	Kind FailureKind `json:"kind"`
	Err  string      `json:"error"`
}

// ScanResult is the outcome of a batch.
// Invariant: Succeeded + Failed == Attempted == len(job.Universe).
// ⭐ SSOT: 배치 결과
type ScanResult[T any] struct {
	JobID      uuid.UUID     `json:"job_id"`
	Results    []T           `json:"results"`
	Attempted  int           `json:"attempted"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Failures   []ItemFailure `json:"failures,omitempty"`
	Cancelled  bool          `json:"cancelled"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Duration of the run
func (r *ScanResult[T]) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailuresByKind counts failures per kind
func (r *ScanResult[T]) FailuresByKind() map[FailureKind]int {
	out := make(map[FailureKind]int)
	for _, f := range r.Failures {
		out[f.Kind]++
	}
	return out
}

// Progress is reported after every item completes
type Progress struct {
	Completed int        `json:"completed"`
	Total     int        `json:"total"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Last      SecurityID `json:"last"`
}

// Fraction in [0,1]
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// ProgressFunc receives progress updates; Completed is strictly increasing
type ProgressFunc func(Progress)
