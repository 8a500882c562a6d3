package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/service"
	"github.com/wonny/valuescan/internal/universe"
)

// universeCmd resolves a named universe
var universeCmd = &cobra.Command{
	Use:   "universe [name]",
	Short: "Resolve a universe to its constituent ids",
	Long: `Resolves a built-in universe (sp500, nasdaq100, hangseng, nikkei225, all).
The live listings page is tried first, then the built-in list.

Example:
  go run ./cmd/valuescan universe sp500
  go run ./cmd/valuescan universe all --refresh`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUniverse,
}

var universeRefresh bool

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.Flags().BoolVar(&universeRefresh, "refresh", false, "drop the cached list before resolving")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		fmt.Println("Available universes:")
		for _, name := range a.resolver.Names() {
			fmt.Printf("   • %s\n", name)
		}
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	name := args[0]
	if universeRefresh {
		a.resolver.Invalidate(ctx, name)
	}

	ids, res := a.svc.ResolveUniverse(ctx, name)
	if res.Source == universe.SourceNone {
		return fmt.Errorf("%w: %q", contracts.ErrUnknownUniverse, name)
	}

	if jsonOutput {
		return PrintJSON(map[string]interface{}{"resolution": res, "ids": ids})
	}

	PrintHeader("Universe", map[string]string{
		"Name":   res.Name,
		"Source": string(res.Source),
		"Size":   fmt.Sprintf("%d", res.Size),
		"Error":  res.Err,
	}, "Name", "Source", "Size", "Error")
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	fmt.Println(strings.Join(raw, " "))
	return nil
}

// selectIDs picks explicit ids over a universe name
func selectIDs(ctx context.Context, svc *service.Service, name string, raw []string) ([]contracts.SecurityID, string, error) {
	if len(raw) > 0 {
		return universe.Dedupe(contracts.IDs(raw...)), "custom", nil
	}
	if name == "" {
		return nil, "", fmt.Errorf("either --universe or ids are required")
	}

	ids, res := svc.ResolveUniverse(ctx, name)
	if res.Source == universe.SourceNone {
		return nil, "", fmt.Errorf("%w: %q", contracts.ErrUnknownUniverse, name)
	}
	if res.Source == universe.SourceFallback {
		PrintWarning(fmt.Sprintf("%s listings unavailable, using built-in list (%s)", res.Name, res.Err))
	}
	return ids, res.Name, nil
}
