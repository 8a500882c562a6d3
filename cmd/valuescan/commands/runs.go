package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// runsCmd shows recent batch summaries
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent batch runs",
	Long: `Lists batch summaries from PostgreSQL (DATABASE_URL).
Without a database only runs of the current process are kept, so this is empty.`,
	RunE: runRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.history.Recent(context.Background(), runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if jsonOutput {
		return PrintJSON(runs)
	}

	widths := []int{20, 10, 12, 6, 6, 6, 10, 30}
	PrintTableHeader([]string{"STARTED", "KIND", "UNIVERSE", "ITEMS", "OK", "FAIL", "DURATION", "TOP PICKS"}, widths)
	for _, r := range runs {
		picks := make([]string, 0, len(r.TopPicks))
		for _, id := range r.TopPicks {
			picks = append(picks, string(id))
		}
		universe := r.Universe
		if r.Cancelled {
			universe += "*"
		}
		PrintTableRow([]string{
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Kind,
			universe,
			fmt.Sprintf("%d", r.Attempted),
			fmt.Sprintf("%d", r.Succeeded),
			fmt.Sprintf("%d", r.Failed),
			r.Duration.Round(time.Millisecond).String(),
			strings.Join(picks, ","),
		}, widths)
	}
	return nil
}
