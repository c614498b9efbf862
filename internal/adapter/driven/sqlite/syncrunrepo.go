package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SyncRunStore = (*SyncRunRepo)(nil)

// SyncRunRepo is the SQLite implementation of the SyncRunStore port interface.
type SyncRunRepo struct {
	db *DB
}

// NewSyncRunRepo creates a new SyncRunRepo backed by the given DB.
func NewSyncRunRepo(db *DB) *SyncRunRepo {
	return &SyncRunRepo{db: db}
}

// Record stores the outcome of one cycle.
func (r *SyncRunRepo) Record(ctx context.Context, run model.SyncRun) error {
	const query = `
		INSERT INTO sync_runs (id, started_at, finished_at, dry_run, found, new_count,
		                       generated, auto_sent, skipped, failed, message, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), boolToInt(run.DryRun),
		run.Found, run.New, run.Generated, run.AutoSent, run.Skipped, run.Failed,
		run.Message, run.Error,
	)
	if err != nil {
		return fmt.Errorf("record sync run %s: %w", run.ID, err)
	}

	return nil
}

// ListRecent returns up to limit runs, most recent first.
func (r *SyncRunRepo) ListRecent(ctx context.Context, limit int) ([]model.SyncRun, error) {
	const query = `
		SELECT id, started_at, finished_at, dry_run, found, new_count,
		       generated, auto_sent, skipped, failed, message, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var (
			run                   model.SyncRun
			startedAt, finishedAt sql.NullString
			dryRun                int
		)
		if err := rows.Scan(
			&run.ID, &startedAt, &finishedAt, &dryRun, &run.Found, &run.New,
			&run.Generated, &run.AutoSent, &run.Skipped, &run.Failed, &run.Message, &run.Error,
		); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}

		run.DryRun = dryRun != 0
		if run.StartedAt, err = parseNullTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at for run %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = parseNullTime(finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at for run %s: %w", run.ID, err)
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}

	return runs, nil
}
