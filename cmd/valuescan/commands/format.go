package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/valuescan/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a boxed command header
func PrintHeader(title string, fields map[string]string, order ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	for _, k := range order {
		if v, ok := fields[k]; ok && v != "" {
			fmt.Printf("  %-10s: %s\n", k, v)
		}
	}
	PrintSeparator()
}

// PrintProgress prints one orchestrator progress line
// Example: [scan] AAPL done [12/500] ok=11 failed=1
func PrintProgress(tag string, p contracts.Progress) {
	fmt.Fprintf(os.Stderr, "\r[%s] %-10s [%d/%d] ok=%d failed=%d", tag, p.Last, p.Completed, p.Total, p.Succeeded, p.Failed)
	if p.Completed == p.Total {
		fmt.Fprintln(os.Stderr)
	}
}

// PrintBatchSummary prints counts and failure kinds of a finished batch
func PrintBatchSummary[T any](r *contracts.ScanResult[T]) {
	fmt.Println()
	if r.Cancelled {
		PrintWarning(fmt.Sprintf("Batch cancelled after %d of %d items", r.Succeeded+r.Failed, r.Attempted))
	}
	fmt.Printf("✅ %d/%d succeeded, %d failed in %.2fs\n", r.Succeeded, r.Attempted, r.Failed, r.Duration().Seconds())

	for kind, n := range r.FailuresByKind() {
		fmt.Printf("   • %-22s %d\n", kind, n)
	}
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// score renders a 1..5 score, "-" when indeterminate
func score(v int) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", v)
}

var valuationColumns = []string{"ID", "PRICE", "FAIR", "DIFF%", "SECTOR", "MODELS", "SURP", "MISS"}
var valuationWidths = []int{10, 10, 10, 8, 24, 6, 4, 4}

// PrintValuations prints valuation results as a table
func PrintValuations(results []contracts.ValuationResult) {
	PrintTableHeader(valuationColumns, valuationWidths)
	for _, r := range results {
		PrintTableRow([]string{
			string(r.ID),
			fmt.Sprintf("%.2f", r.CurrentPrice),
			fmt.Sprintf("%.2f", r.FairValue),
			fmt.Sprintf("%+.1f", r.DiffPercent),
			r.Sector,
			fmt.Sprintf("%d", r.ModelCount),
			score(r.SurpriseScore),
			score(r.MissScore),
		}, valuationWidths)
	}
}

var optionColumns = []string{"CONTRACT", "TYPE", "STRIKE", "EXPIRY", "MARKET", "THEO", "DIV%", "VOL"}
var optionWidths = []int{22, 4, 9, 10, 9, 9, 8, 6}

// PrintOptions prints option valuation results as a table
func PrintOptions(results []contracts.OptionValuationResult) {
	PrintTableHeader(optionColumns, optionWidths)
	for _, r := range results {
		PrintTableRow([]string{
			r.ContractSymbol,
			string(r.Type),
			fmt.Sprintf("%.2f", r.Strike),
			r.Expiration.Format("2006-01-02"),
			fmt.Sprintf("%.2f", r.MarketPrice),
			fmt.Sprintf("%.2f", r.TheoreticalPrice),
			fmt.Sprintf("%+.1f", r.DivergencePercent),
			fmt.Sprintf("%.2f", r.VolatilityUsed),
		}, optionWidths)
	}
}
