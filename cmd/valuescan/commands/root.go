package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "valuescan",
	Short: "Fundamental and option value scanner",
	Long: `valuescan values listed equities against sector benchmark multiples
and prices listed options with Black-Scholes.

Usage:
  go run ./cmd/valuescan [command]

Examples:
  go run ./cmd/valuescan universe sp500
  go run ./cmd/valuescan evaluate AAPL MSFT
  go run ./cmd/valuescan scan --universe nasdaq100 --parallel 8
  go run ./cmd/valuescan options --universe sp500 --type call
  go run ./cmd/valuescan api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}
