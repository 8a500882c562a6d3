package options

import (
	"sort"

	"github.com/wonny/valuescan/internal/contracts"
)

// FilterOptions narrows scan output for presentation
type FilterOptions struct {
	Type          contracts.OptionType // empty = calls and puts
	MinDivergence float64              // percent
}

// DefaultFilter mirrors the usual "top value options" view
var DefaultFilter = FilterOptions{MinDivergence: 10}

// Filter keeps results matching type and minimum divergence
func Filter(results []contracts.OptionValuationResult, opts FilterOptions) []contracts.OptionValuationResult {
	out := make([]contracts.OptionValuationResult, 0, len(results))
	for _, r := range results {
		if opts.Type != "" && r.Type != opts.Type {
			continue
		}
		if r.DivergencePercent < opts.MinDivergence {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortByDivergence orders results by divergence, highest first
func SortByDivergence(results []contracts.OptionValuationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DivergencePercent > results[j].DivergencePercent
	})
}
