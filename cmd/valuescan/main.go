package main

import (
	"os"

	"github.com/wonny/valuescan/cmd/valuescan/commands"
)

// main is the entry point for the valuescan CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/valuescan [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
