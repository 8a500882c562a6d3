package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/internal/contracts"
)

func records(beats, misses int) []contracts.EarningsRecord {
	out := make([]contracts.EarningsRecord, 0, beats+misses)
	for i := 0; i < beats; i++ {
		out = append(out, contracts.EarningsRecord{Reported: 1.1, Estimate: 1.0})
	}
	for i := 0; i < misses; i++ {
		out = append(out, contracts.EarningsRecord{Reported: 0.9, Estimate: 1.0})
	}
	return out
}

func TestScoreSurprise(t *testing.T) {
	tests := []struct {
		name         string
		snap         contracts.FundamentalSnapshot
		sectorGrowth float64
		wantSurprise int
		wantMiss     int
	}{
		{
			// beat 0.8 (+2), esp +10% (+1), growth 0.2 (+1), short 2 (+1), sector 0.15 (+1) → 6 → 5
			name: "strong beat clamps at 5",
			snap: contracts.FundamentalSnapshot{
				Earnings: records(4, 1), ForwardEPS: 2, NextEPSEstimate: 2.2,
				EarningsGrowth: 0.2, ShortPercentOfFloat: 2,
			},
			sectorGrowth: 0.15,
			wantSurprise: 5,
			wantMiss:     1,
		},
		{
			// beat 0.2 (+2 miss), esp -10% (+1), growth -0.1 (+1), short 15 (+1), sector 0.04 (+1)
			name: "strong miss clamps at 5",
			snap: contracts.FundamentalSnapshot{
				Earnings: records(1, 4), ForwardEPS: 2, NextEPSEstimate: 1.8,
				EarningsGrowth: -0.1, ShortPercentOfFloat: 15,
			},
			sectorGrowth: 0.04,
			wantSurprise: 1,
			wantMiss:     5,
		},
		{
			// no history → beat 0.5 (neither tier), short 0 (<5 → +1 surprise), sector 0.1 (no rule)
			name:         "neutral",
			snap:         contracts.FundamentalSnapshot{},
			sectorGrowth: 0.1,
			wantSurprise: 1,
			wantMiss:     1,
		},
		{
			// beat 0.6 → +1 surprise; short 7 → none; sector 0.05 → none
			name: "mild beat",
			snap: contracts.FundamentalSnapshot{
				Earnings: records(3, 2), ShortPercentOfFloat: 7, EarningsGrowth: 0.12,
			},
			sectorGrowth: 0.05,
			wantSurprise: 2,
			wantMiss:     1,
		},
		{
			// beat 0.4 → +1 miss; growth < 0 → +1 miss
			name: "mild miss",
			snap: contracts.FundamentalSnapshot{
				Earnings: records(2, 3), ShortPercentOfFloat: 7, EarningsGrowth: -0.01,
			},
			sectorGrowth: 0.07,
			wantSurprise: 1,
			wantMiss:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := ScoreSurprise(&tt.snap, tt.sectorGrowth)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSurprise, score.Surprise)
			assert.Equal(t, tt.wantMiss, score.Miss)
		})
	}
}

func TestGatherSignals(t *testing.T) {
	sig, err := GatherSignals(&contracts.FundamentalSnapshot{
		Earnings:   []contracts.EarningsRecord{{Reported: 1, Estimate: 1.2}},
		ForwardEPS: 4,
	}, 0.1)
	require.NoError(t, err)

	// no NextEPSEstimate → newest record's estimate
	assert.InDelta(t, (1.2-4)/4*100, sig.ESP, 1e-9)
	assert.Equal(t, 0.0, sig.BeatRate)

	_, err = GatherSignals(nil, 0.1)
	assert.Error(t, err)
}

func TestScoreSurprise_IndeterminateOnNonFinite(t *testing.T) {
	score, err := ScoreSurprise(&contracts.FundamentalSnapshot{
		ForwardEPS:      5e-324,
		NextEPSEstimate: 1e308,
	}, 0.1)
	assert.Error(t, err)
	assert.Equal(t, Score{}, score)
}
