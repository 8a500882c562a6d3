package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/contracts"
)

// evaluateCmd values individual securities
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [id...]",
	Short: "Value one or more securities",
	Long: `Fetches fundamentals and prints the blended fair value with every
applicable estimator.

Example:
  go run ./cmd/valuescan evaluate AAPL
  go run ./cmd/valuescan evaluate 0700.HK 7203.T --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var results []*contracts.ValuationResult
	for _, id := range contracts.IDs(args...) {
		r, err := a.svc.EvaluateOne(ctx, id)
		if err != nil {
			if !jsonOutput {
				PrintError(fmt.Sprintf("%s: %v", id, err))
			}
			continue
		}
		results = append(results, r)
	}

	if jsonOutput {
		return PrintJSON(results)
	}

	for _, r := range results {
		PrintHeader(string(r.ID), map[string]string{
			"Sector":   r.Sector,
			"Price":    fmt.Sprintf("%.2f", r.CurrentPrice),
			"Blended":  fmt.Sprintf("%.2f", r.BlendedValue),
			"Fair":     fmt.Sprintf("%.2f (%+.2f%%)", r.FairValue, r.DiffPercent),
			"Surprise": score(r.SurpriseScore),
			"Miss":     score(r.MissScore),
		}, "Sector", "Price", "Blended", "Fair", "Surprise", "Miss")

		for _, e := range r.Estimators {
			PrintKeyValue(e.Name, fmt.Sprintf("%10.2f  w=%.3f", e.Value, e.Weight), 12)
		}
		for _, f := range r.Flags {
			PrintWarning(f)
		}
		if r.ScoreError != "" {
			PrintWarning("scores indeterminate: " + r.ScoreError)
		}
	}
	return nil
}
