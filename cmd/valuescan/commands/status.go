package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/universe"
)

// statusCmd checks every backing service the scanner talks to
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check configuration, PostgreSQL, Redis and listings connectivity",
	Long: `Example:
  go run ./cmd/valuescan status
  go run ./cmd/valuescan status --probe sp500`,
	RunE: runStatus,
}

var statusProbe string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusProbe, "probe", "", "resolve this universe as a listings check")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		PrintError(err.Error())
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	PrintHeader("valuescan status", map[string]string{
		"Env":      a.cfg.Env,
		"Provider": a.cfg.Provider.QuoteBaseURL,
		"Parallel": fmt.Sprintf("%d (timeout %s)", a.cfg.Scan.MaxParallel, a.cfg.Scan.ItemTimeout),
	}, "Env", "Provider", "Parallel")

	// PostgreSQL
	if a.db == nil {
		PrintKeyValue("PostgreSQL", "not configured (in-memory run history)", 12)
	} else if health, err := a.db.HealthCheck(ctx); err != nil {
		PrintKeyValue("PostgreSQL", "❌ "+err.Error(), 12)
	} else {
		PrintKeyValue("PostgreSQL", fmt.Sprintf("✅ %s (%d/%d conns)", health.ResponseTime.Round(time.Millisecond), health.Stats.TotalConns, health.Stats.MaxConns), 12)
	}

	// Redis
	if !a.rdb.Enabled() {
		PrintKeyValue("Redis", "disabled (per-process cache and throttle)", 12)
	} else if err := a.rdb.Redis().Ping(ctx).Err(); err != nil {
		PrintKeyValue("Redis", "❌ "+err.Error(), 12)
	} else {
		PrintKeyValue("Redis", "✅ connected", 12)
	}

	if statusProbe != "" {
		a.resolver.Invalidate(ctx, statusProbe)
		ids, res := a.resolver.Resolve(ctx, statusProbe)
		switch res.Source {
		case universe.SourcePrimary:
			PrintKeyValue("Listings", fmt.Sprintf("✅ %s: %d ids", res.Name, len(ids)), 12)
		case universe.SourceNone:
			PrintKeyValue("Listings", fmt.Sprintf("❌ unknown universe %q", statusProbe), 12)
		default:
			PrintKeyValue("Listings", fmt.Sprintf("⚠️  %s fell back to built-in list: %s", res.Name, res.Err), 12)
		}
	}

	return nil
}
