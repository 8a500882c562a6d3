package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/valuescan/internal/contracts"
)

// Schema is applied by database.Migrate on startup
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS valuescan`,
	`CREATE TABLE IF NOT EXISTS valuescan.scan_runs (
		job_id      UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		universe    TEXT NOT NULL,
		attempted   INTEGER NOT NULL,
		succeeded   INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		cancelled   BOOLEAN NOT NULL DEFAULT FALSE,
		started_at  TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL,
		top_picks   TEXT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON valuescan.scan_runs (started_at DESC)`,
}

// Store records and lists batch summaries
type Store interface {
	contracts.RunRecorder
	Recent(ctx context.Context, limit int) ([]contracts.RunSummary, error)
}

// Repository persists run summaries in PostgreSQL
// ⭐ SSOT: 배치 실행 이력 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new run history repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordRun upserts one summary
func (r *Repository) RecordRun(ctx context.Context, s contracts.RunSummary) error {
	query := `
		INSERT INTO valuescan.scan_runs
			(job_id, kind, universe, attempted, succeeded, failed, cancelled, started_at, duration_ms, top_picks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (job_id) DO UPDATE SET
			attempted   = EXCLUDED.attempted,
			succeeded   = EXCLUDED.succeeded,
			failed      = EXCLUDED.failed,
			cancelled   = EXCLUDED.cancelled,
			duration_ms = EXCLUDED.duration_ms,
			top_picks   = EXCLUDED.top_picks
	`

	_, err := r.pool.Exec(ctx, query,
		s.JobID, s.Kind, s.Universe, s.Attempted, s.Succeeded, s.Failed, s.Cancelled,
		s.StartedAt, s.Duration.Milliseconds(), idStrings(s.TopPicks),
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}
	return nil
}

// Recent returns the latest summaries, newest first
func (r *Repository) Recent(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT job_id::text, kind, universe, attempted, succeeded, failed, cancelled,
		       started_at, duration_ms, top_picks
		FROM valuescan.scan_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}
	defer rows.Close()

	var runs []contracts.RunSummary
	for rows.Next() {
		var (
			s          contracts.RunSummary
			durationMs int64
			picks      []string
		)
		if err := rows.Scan(
			&s.JobID, &s.Kind, &s.Universe, &s.Attempted, &s.Succeeded, &s.Failed, &s.Cancelled,
			&s.StartedAt, &durationMs, &picks,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		s.Duration = time.Duration(durationMs) * time.Millisecond
		s.TopPicks = contracts.IDs(picks...)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func idStrings(ids []contracts.SecurityID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
