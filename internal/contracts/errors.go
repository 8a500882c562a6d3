package contracts

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a per-item failure
type FailureKind string

const (
	KindUpstreamUnavailable FailureKind = "upstream_unavailable"
	KindInsufficientData    FailureKind = "insufficient_data"
	KindDegenerateMath      FailureKind = "degenerate_math"
	KindTimeout             FailureKind = "timeout"
	KindCancelled           FailureKind = "cancelled"
	KindInternal            FailureKind = "internal"
)

// Sentinel errors
var (
	ErrUnknownUniverse = errors.New("unknown universe")
	ErrNoPrice         = errors.New("no positive price")
	ErrNoEstimators    = errors.New("no applicable estimator")
	ErrNotFound        = errors.New("security not found")
)

// Failure is a classified error for one security
// ⭐ SSOT: 종목 단위 실패 분류
type Failure struct {
	Kind FailureKind
	ID   SecurityID
	Err  error
}

func (f *Failure) Error() string {
	if f.ID == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.ID, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a Failure
func NewFailure(kind FailureKind, id SecurityID, err error) *Failure {
	return &Failure{Kind: kind, ID: id, Err: err}
}

// KindOf classifies any error; unknown errors are KindInternal
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrNoPrice), errors.Is(err, ErrNoEstimators), errors.Is(err, ErrNotFound):
		return KindInsufficientData
	default:
		return KindInternal
	}
}

// IsAbsent reports a valuation that legitimately produced no result
func IsAbsent(err error) bool {
	return KindOf(err) == KindInsufficientData
}
