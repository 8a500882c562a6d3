package contracts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want SecurityID
	}{
		{"aapl", "AAPL"},
		{" msft ", "MSFT"},
		{"BRK.B", "BRK-B"},
		{"0005.HK", "0005.HK"},
		{"7203.T", "7203.T"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.in))
		})
	}
}

func TestIDs_DropsEmpty(t *testing.T) {
	assert.Equal(t, []SecurityID{"AAPL", "NVDA"}, IDs("aapl", "  ", "nvda"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, ""},
		{"failure", NewFailure(KindUpstreamUnavailable, "AAPL", errors.New("503")), KindUpstreamUnavailable},
		{"wrapped failure", fmt.Errorf("fetch: %w", NewFailure(KindDegenerateMath, "X", errors.New("nan"))), KindDegenerateMath},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"cancel", context.Canceled, KindCancelled},
		{"no price", ErrNoPrice, KindInsufficientData},
		{"other", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFailure_Unwrap(t *testing.T) {
	f := NewFailure(KindInsufficientData, "AAPL", ErrNoEstimators)
	assert.ErrorIs(t, f, ErrNoEstimators)
	assert.True(t, IsAbsent(f))
	assert.Contains(t, f.Error(), "AAPL")
}

func TestSanitize(t *testing.T) {
	f := FundamentalSnapshot{Price: math.NaN(), TrailingEPS: math.Inf(1), ForwardEPS: 2}
	f.Sanitize()
	assert.Equal(t, 0.0, f.Price)
	assert.Equal(t, 0.0, f.TrailingEPS)
	assert.Equal(t, 2.0, f.ForwardEPS)
}

func TestParseOptionType(t *testing.T) {
	typ, err := ParseOptionType("CALLS")
	assert.NoError(t, err)
	assert.Equal(t, Call, typ)

	typ, err = ParseOptionType("put")
	assert.NoError(t, err)
	assert.Equal(t, Put, typ)

	_, err = ParseOptionType("straddle")
	assert.Error(t, err)
}

func TestScanResultHelpers(t *testing.T) {
	r := ScanResult[int]{
		Failures: []ItemFailure{
			{ID: "A", Kind: KindTimeout},
			{ID: "B", Kind: KindTimeout},
			{ID: "C", Kind: KindUpstreamUnavailable},
		},
	}
	byKind := r.FailuresByKind()
	assert.Equal(t, 2, byKind[KindTimeout])
	assert.Equal(t, 1, byKind[KindUpstreamUnavailable])

	assert.Equal(t, 0.5, Progress{Completed: 5, Total: 10}.Fraction())
	assert.Equal(t, 1.0, Progress{}.Fraction())
}
