package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// earningsCmd lists upcoming earnings dates
var earningsCmd = &cobra.Command{
	Use:   "earnings [id...]",
	Short: "List securities reporting within the next N days",
	Long: `Example:
  go run ./cmd/valuescan earnings --universe nasdaq100 --days 14`,
	RunE: runEarnings,
}

var (
	earningsUniverse string
	earningsDays     int
)

func init() {
	rootCmd.AddCommand(earningsCmd)

	earningsCmd.Flags().StringVarP(&earningsUniverse, "universe", "u", "", "universe name")
	earningsCmd.Flags().IntVar(&earningsDays, "days", 0, "look-ahead window in days (default EARNINGS_WINDOW)")
}

func runEarnings(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ids, name, err := selectIDs(ctx, a.svc, earningsUniverse, args)
	if err != nil {
		return err
	}

	window := a.cfg.Scan.EarningsWindow
	if earningsDays > 0 {
		window = time.Duration(earningsDays) * 24 * time.Hour
	}

	upcoming, result := a.svc.UpcomingEarnings(ctx, ids, window, 0)
	if jsonOutput {
		return PrintJSON(upcoming)
	}

	PrintHeader("Upcoming earnings", map[string]string{
		"Universe": name,
		"Window":   window.String(),
	}, "Universe", "Window")

	widths := []int{12, 12}
	PrintTableHeader([]string{"ID", "DATE"}, widths)
	for _, u := range upcoming {
		PrintTableRow([]string{string(u.ID), u.Date.Format("2006-01-02")}, widths)
	}
	fmt.Printf("\n%d of %d reporting (%d lookups failed)\n", len(upcoming), result.Attempted, result.Failed)
	return nil
}
