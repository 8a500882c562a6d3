package multiples

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FallbackSector is always present and used for unknown sectors
const FallbackSector = "Other"

// Multiples are benchmark ratios for one sector
type Multiples struct {
	CurrentPE  float64 `yaml:"current_pe" json:"current_pe"`
	ForwardPE  float64 `yaml:"forward_pe" json:"forward_pe"`
	PB         float64 `yaml:"pb" json:"pb"`
	PS         float64 `yaml:"ps" json:"ps"`
	EVEBITDA   float64 `yaml:"ev_ebitda" json:"ev_ebitda"`
	PEG        float64 `yaml:"peg" json:"peg"`
	GrowthRate float64 `yaml:"growth_rate" json:"growth_rate"`
	ROE        float64 `yaml:"roe" json:"roe"`
}

// Table maps sector names to benchmark multiples.
// Immutable after construction; safe to share across goroutines without locking.
// ⭐ SSOT: 섹터 멀티플은 여기서만 조회
type Table struct {
	sectors map[string]Multiples // key: canonical sector name
	index   map[string]string    // lower-case name or alias → canonical name
}

// New builds a Table from sector entries and optional aliases (alias → sector).
// Returns an error when "Other" is missing, a value is negative, or an alias targets an unknown sector.
func New(sectors map[string]Multiples, aliases map[string]string) (*Table, error) {
	t := &Table{
		sectors: make(map[string]Multiples, len(sectors)),
		index:   make(map[string]string, len(sectors)+len(aliases)),
	}

	for name, m := range sectors {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty sector name")
		}
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("sector %q: %w", name, err)
		}
		t.sectors[name] = m
		t.index[strings.ToLower(name)] = name
	}

	if _, ok := t.sectors[FallbackSector]; !ok {
		return nil, fmt.Errorf("sector %q is required", FallbackSector)
	}

	for alias, target := range aliases {
		if _, ok := t.sectors[target]; !ok {
			return nil, fmt.Errorf("alias %q targets unknown sector %q", alias, target)
		}
		t.index[strings.ToLower(strings.TrimSpace(alias))] = target
	}

	return t, nil
}

func (m Multiples) validate() error {
	fields := map[string]float64{
		"current_pe":  m.CurrentPE,
		"forward_pe":  m.ForwardPE,
		"pb":          m.PB,
		"ps":          m.PS,
		"ev_ebitda":   m.EVEBITDA,
		"peg":         m.PEG,
		"growth_rate": m.GrowthRate,
		"roe":         m.ROE,
	}
	for name, v := range fields {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite non-negative number, got %v", name, v)
		}
	}
	return nil
}

// Lookup returns the multiples for a sector; unknown or empty sectors get "Other".
// Never fails.
func (t *Table) Lookup(sector string) Multiples {
	m, _ := t.Resolve(sector)
	return m
}

// Resolve is Lookup plus the canonical sector name that was used
func (t *Table) Resolve(sector string) (Multiples, string) {
	if name, ok := t.index[strings.ToLower(strings.TrimSpace(sector))]; ok {
		return t.sectors[name], name
	}
	return t.sectors[FallbackSector], FallbackSector
}

// Sectors returns canonical sector names, sorted
func (t *Table) Sectors() []string {
	names := make([]string, 0, len(t.sectors))
	for name := range t.sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
