package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// FetchRunStore implements domain.FetchRunStore using PostgreSQL.
type FetchRunStore struct {
	pool *pgxpool.Pool
}

// NewFetchRunStore creates a new FetchRunStore backed by the given connection pool.
func NewFetchRunStore(pool *pgxpool.Pool) *FetchRunStore {
	return &FetchRunStore{pool: pool}
}

var _ domain.FetchRunStore = (*FetchRunStore)(nil)

// RecordRun persists one catalog refresh audit record. Recording the same
// run ID twice overwrites the earlier row.
func (s *FetchRunStore) RecordRun(ctx context.Context, run *domain.FetchRun) error {
	const query = `
		INSERT INTO fetch_runs (
			id, started_at, finished_at,
			pages, events, markets, duration_ms,
			hit_page_cap, timed_out, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			pages = EXCLUDED.pages,
			events = EXCLUDED.events,
			markets = EXCLUDED.markets,
			duration_ms = EXCLUDED.duration_ms,
			hit_page_cap = EXCLUDED.hit_page_cap,
			timed_out = EXCLUDED.timed_out,
			error = EXCLUDED.error`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.StartedAt, run.FinishedAt,
		run.Stats.Pages, run.Stats.Events, run.Stats.Markets,
		run.Stats.Duration.Milliseconds(),
		run.Stats.HitPageCap, run.Stats.TimedOut, run.Err,
	)
	if err != nil {
		return fmt.Errorf("postgres: record fetch run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recently started runs, newest first.
func (s *FetchRunStore) RecentRuns(ctx context.Context, limit int) ([]domain.FetchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT id, started_at, finished_at,
			pages, events, markets, duration_ms,
			hit_page_cap, timed_out, error
		FROM fetch_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fetch runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.FetchRun
	for rows.Next() {
		var (
			r          domain.FetchRun
			durationMS int64
		)
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.FinishedAt,
			&r.Stats.Pages, &r.Stats.Events, &r.Stats.Markets, &durationMS,
			&r.Stats.HitPageCap, &r.Stats.TimedOut, &r.Err,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan fetch run: %w", err)
		}
		r.Stats.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate fetch runs: %w", err)
	}
	return runs, nil
}
