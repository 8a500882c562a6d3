package valuation

import (
	"fmt"
	"math"

	"github.com/wonny/valuescan/internal/contracts"
)

// Score is the pair of rule-based earnings surprise/miss scores.
// Both are in [1,5]; 0 means indeterminate.
type Score struct {
	Surprise int     `json:"surprise"`
	Miss     int     `json:"miss"`
	BeatRate float64 `json:"beat_rate"`
	ESP      float64 `json:"esp"` // earnings surprise percent proxy
}

// Signals feeding the threshold table
type Signals struct {
	BeatRate       float64 // share of reported quarters beating estimate; 0.5 without history
	ESP            float64 // (next estimate - forward EPS) / forward EPS * 100
	EarningsGrowth float64
	ShortInterest  float64 // percent of float
	SectorGrowth   float64
}

type rule struct {
	points int
	hit    func(Signals) bool
}

// Threshold table. Each side mirrors the other around the neutral point.
// Beat-rate rules are tiered: only the first matching tier counts.
var (
	surpriseBeatTiers = []rule{
		{2, func(s Signals) bool { return s.BeatRate > 0.7 }},
		{1, func(s Signals) bool { return s.BeatRate > 0.5 }},
	}
	surpriseRules = []rule{
		{1, func(s Signals) bool { return s.ESP > 5 }},
		{1, func(s Signals) bool { return s.EarningsGrowth > 0.1 }},
		{1, func(s Signals) bool { return s.ShortInterest < 5 }},
		{1, func(s Signals) bool { return s.SectorGrowth > 0.1 }},
	}
	missBeatTiers = []rule{
		{2, func(s Signals) bool { return s.BeatRate < 0.3 }},
		{1, func(s Signals) bool { return s.BeatRate < 0.5 }},
	}
	missRules = []rule{
		{1, func(s Signals) bool { return s.ESP < -5 }},
		{1, func(s Signals) bool { return s.EarningsGrowth < 0 }},
		{1, func(s Signals) bool { return s.ShortInterest > 10 }},
		{1, func(s Signals) bool { return s.SectorGrowth < 0.05 }},
	}
)

// ScoreSurprise gathers signals and applies the threshold table.
// Any failure yields a zero Score and an error; callers keep the valuation.
func ScoreSurprise(s *contracts.FundamentalSnapshot, sectorGrowth float64) (score Score, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = Score{}
			err = fmt.Errorf("surprise scoring panicked: %v", r)
		}
	}()

	sig, err := GatherSignals(s, sectorGrowth)
	if err != nil {
		return Score{}, err
	}

	return Score{
		Surprise: clampScore(tiered(surpriseBeatTiers, sig) + sum(surpriseRules, sig)),
		Miss:     clampScore(tiered(missBeatTiers, sig) + sum(missRules, sig)),
		BeatRate: sig.BeatRate,
		ESP:      sig.ESP,
	}, nil
}

// GatherSignals derives scoring signals from a snapshot
func GatherSignals(s *contracts.FundamentalSnapshot, sectorGrowth float64) (Signals, error) {
	if s == nil {
		return Signals{}, fmt.Errorf("nil snapshot")
	}

	sig := Signals{
		BeatRate:       beatRate(s.Earnings),
		ESP:            esp(s),
		EarningsGrowth: s.EarningsGrowth,
		ShortInterest:  s.ShortPercentOfFloat,
		SectorGrowth:   sectorGrowth,
	}

	for name, v := range map[string]float64{
		"beat_rate":       sig.BeatRate,
		"esp":             sig.ESP,
		"earnings_growth": sig.EarningsGrowth,
		"short_interest":  sig.ShortInterest,
		"sector_growth":   sig.SectorGrowth,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Signals{}, fmt.Errorf("signal %s is not finite", name)
		}
	}

	return sig, nil
}

func beatRate(records []contracts.EarningsRecord) float64 {
	if len(records) == 0 {
		return 0.5
	}
	beats := 0
	for _, r := range records {
		if r.Beat() {
			beats++
		}
	}
	return float64(beats) / float64(len(records))
}

// esp compares the upcoming estimate with forward EPS consensus
func esp(s *contracts.FundamentalSnapshot) float64 {
	latest := s.NextEPSEstimate
	if latest == 0 && len(s.Earnings) > 0 {
		latest = s.Earnings[0].Estimate
	}
	if latest == 0 {
		return 0
	}

	consensus := s.ForwardEPS
	if consensus == 0 {
		return 0
	}
	return (latest - consensus) / consensus * 100
}

func tiered(tiers []rule, s Signals) int {
	for _, r := range tiers {
		if r.hit(s) {
			return r.points
		}
	}
	return 0
}

func sum(rules []rule, s Signals) int {
	total := 0
	for _, r := range rules {
		if r.hit(s) {
			total += r.points
		}
	}
	return total
}

func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
