package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/service"
)

// scanCmd runs a valuation batch
var scanCmd = &cobra.Command{
	Use:   "scan [id...]",
	Short: "Value a whole universe (or a list of ids) in parallel",
	Long: `Runs the bounded-parallel valuation batch and prints the most
undervalued results. Ctrl+C cancels the batch and prints partial results.

Example:
  go run ./cmd/valuescan scan --universe sp500 --parallel 8 --top 25
  go run ./cmd/valuescan scan AAPL MSFT NVDA
  go run ./cmd/valuescan scan --universe nasdaq100 --earnings`,
	RunE: runScan,
}

var (
	scanUniverse    string
	scanParallel    int
	scanTop         int
	scanUndervalued bool
	scanEarnings    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanUniverse, "universe", "u", "", "universe name (sp500, nasdaq100, hangseng, nikkei225, all)")
	scanCmd.Flags().IntVarP(&scanParallel, "parallel", "p", 0, "max concurrent items (default SCAN_MAX_PARALLEL)")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "rows to print (0 = all)")
	scanCmd.Flags().BoolVar(&scanUndervalued, "undervalued", false, "only print undervalued results")
	scanCmd.Flags().BoolVar(&scanEarnings, "earnings", false, "restrict to ids with earnings inside EARNINGS_WINDOW, highest surprise score first")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ids, name, err := selectIDs(ctx, a.svc, scanUniverse, args)
	if err != nil {
		return err
	}

	var upcoming []service.UpcomingEarning
	if scanEarnings {
		upcoming, _ = a.svc.UpcomingEarnings(ctx, ids, a.cfg.Scan.EarningsWindow, scanParallel)
		ids = make([]contracts.SecurityID, len(upcoming))
		for i, u := range upcoming {
			ids[i] = u.ID
		}
	}

	if !jsonOutput {
		PrintHeader("Valuation scan", map[string]string{
			"Universe": name,
			"Items":    fmt.Sprintf("%d", len(ids)),
		}, "Universe", "Items")
	}

	var progress contracts.ProgressFunc
	if !jsonOutput {
		progress = func(p contracts.Progress) { PrintProgress("scan", p) }
	}

	result := a.svc.RunBatch(ctx, ids, scanParallel, progress)

	rows := result.Results
	if scanEarnings {
		rows = service.RankUpcoming(rows, upcoming)
	}
	if scanUndervalued {
		kept := rows[:0:0]
		for _, r := range rows {
			if r.Undervalued() {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	if scanTop > 0 && len(rows) > scanTop {
		rows = rows[:scanTop]
	}

	if jsonOutput {
		result.Results = rows
		return PrintJSON(result)
	}

	PrintValuations(rows)
	PrintBatchSummary(&result)
	return nil
}
