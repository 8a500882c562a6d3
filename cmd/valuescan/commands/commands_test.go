package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandTree(t *testing.T) {
	want := []string{"api", "earnings", "evaluate", "multiples", "options", "runs", "scan", "scheduler", "status", "universe"}

	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestScanFlags(t *testing.T) {
	for _, flag := range []string{"universe", "parallel", "top", "undervalued", "earnings"} {
		assert.NotNil(t, scanCmd.Flags().Lookup(flag), flag)
	}
	assert.Equal(t, "10", optionsCmd.Flags().Lookup("min").DefValue)
}

func TestScore(t *testing.T) {
	assert.Equal(t, "-", score(0))
	assert.Equal(t, "4", score(4))
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "all", typeLabel(""))
	assert.Equal(t, "put", typeLabel("put"))
}
