package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/options"
)

// optionsCmd prices listed options against Black-Scholes
var optionsCmd = &cobra.Command{
	Use:   "options [id...]",
	Short: "Find options trading below their theoretical price",
	Long: `Prices the nearest expirations of each underlying with Black-Scholes and
lists contracts whose theoretical price exceeds the market price.
A universe scan covers the first SCAN_OPTION_TICKERS ids.

Example:
  go run ./cmd/valuescan options AAPL
  go run ./cmd/valuescan options --universe sp500 --type call --min 15`,
	RunE: runOptions,
}

var (
	optionsUniverse string
	optionsParallel int
	optionsType     string
	optionsMin      float64
	optionsTop      int
)

func init() {
	rootCmd.AddCommand(optionsCmd)

	optionsCmd.Flags().StringVarP(&optionsUniverse, "universe", "u", "", "universe name")
	optionsCmd.Flags().IntVarP(&optionsParallel, "parallel", "p", 0, "max concurrent underlyings")
	optionsCmd.Flags().StringVar(&optionsType, "type", "", "call or put (default both)")
	optionsCmd.Flags().Float64Var(&optionsMin, "min", options.DefaultFilter.MinDivergence, "minimum divergence percent")
	optionsCmd.Flags().IntVar(&optionsTop, "top", 30, "rows to print (0 = all)")
}

func runOptions(cmd *cobra.Command, args []string) error {
	filter := options.FilterOptions{MinDivergence: optionsMin}
	if optionsType != "" {
		t, err := contracts.ParseOptionType(optionsType)
		if err != nil {
			return err
		}
		filter.Type = t
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ids, name, err := selectIDs(ctx, a.svc, optionsUniverse, args)
	if err != nil {
		return err
	}

	var progress contracts.ProgressFunc
	if !jsonOutput {
		PrintHeader("Option scan", map[string]string{
			"Universe": name,
			"Items":    fmt.Sprintf("%d", min(len(ids), a.cfg.Scan.OptionTickers)),
			"Filter":   fmt.Sprintf("type=%s min=%.1f%%", typeLabel(filter.Type), filter.MinDivergence),
		}, "Universe", "Items", "Filter")
		progress = func(p contracts.Progress) { PrintProgress("options", p) }
	}

	result := a.svc.ScanOptionsBatch(ctx, ids, optionsParallel, filter, progress)

	rows := result.Results
	if optionsTop > 0 && len(rows) > optionsTop {
		rows = rows[:optionsTop]
	}

	if jsonOutput {
		result.Results = rows
		return PrintJSON(result)
	}

	PrintOptions(rows)
	PrintBatchSummary(&result)
	return nil
}

func typeLabel(t contracts.OptionType) string {
	if t == "" {
		return "all"
	}
	return string(t)
}
