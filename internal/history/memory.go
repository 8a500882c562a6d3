package history

import (
	"context"
	"sync"

	"github.com/wonny/valuescan/internal/contracts"
)

// Memory keeps the last N summaries in process (used when no database is configured)
type Memory struct {
	mu   sync.Mutex
	runs []contracts.RunSummary
	max  int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-process store holding at most capacity runs
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 100
	}
	return &Memory{max: capacity}
}

// RecordRun appends a summary, evicting the oldest beyond capacity
func (m *Memory) RecordRun(ctx context.Context, s contracts.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, s)
	if over := len(m.runs) - m.max; over > 0 {
		m.runs = append([]contracts.RunSummary(nil), m.runs[over:]...)
	}
	return nil
}

// Recent returns up to limit summaries, newest first
func (m *Memory) Recent(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]contracts.RunSummary, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}
