package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/multiples"
	"github.com/wonny/valuescan/pkg/config"
)

// multiplesCmd prints the sector benchmark table in use
var multiplesCmd = &cobra.Command{
	Use:   "multiples [sector]",
	Short: "Show sector benchmark multiples",
	Long: `Prints the built-in table, or the one loaded from MULTIPLES_FILE.
With a sector argument, shows which entry it resolves to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMultiples,
}

func init() {
	rootCmd.AddCommand(multiplesCmd)
}

func runMultiples(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	table, err := multiples.LoadOrDefault(cfg.Scan.MultiplesFile)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		m, resolved := table.Resolve(args[0])
		if jsonOutput {
			return PrintJSON(map[string]interface{}{"sector": resolved, "multiples": m})
		}
		fmt.Printf("%q → %s\n", args[0], resolved)
		printMultiplesRows(table, []string{resolved})
		return nil
	}

	if jsonOutput {
		out := make(map[string]multiples.Multiples)
		for _, s := range table.Sectors() {
			out[s] = table.Lookup(s)
		}
		return PrintJSON(out)
	}

	printMultiplesRows(table, table.Sectors())
	return nil
}

func printMultiplesRows(table *multiples.Table, sectors []string) {
	widths := []int{24, 7, 7, 6, 6, 9, 6, 7, 6}
	PrintTableHeader([]string{"SECTOR", "PE", "FWD PE", "PB", "PS", "EV/EBITDA", "PEG", "GROWTH", "ROE"}, widths)
	for _, s := range sectors {
		m := table.Lookup(s)
		PrintTableRow([]string{
			s,
			fmt.Sprintf("%.1f", m.CurrentPE),
			fmt.Sprintf("%.1f", m.ForwardPE),
			fmt.Sprintf("%.1f", m.PB),
			fmt.Sprintf("%.1f", m.PS),
			fmt.Sprintf("%.1f", m.EVEBITDA),
			fmt.Sprintf("%.2f", m.PEG),
			fmt.Sprintf("%.2f", m.GrowthRate),
			fmt.Sprintf("%.2f", m.ROE),
		}, widths)
	}
}
