package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/database"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// RunStore provides persistence for pipeline runs.
type RunStore interface {
	// Start atomically checks that no run for the same (dataset,
	// pipeline) is queued or processing and inserts the given run.
	// Returns a conflict error when one is.
	Start(ctx context.Context, run *Run) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id types.ID) (*Run, error)

	// LatestForDataset retrieves the most recent run of the named
	// pipeline against a dataset, or nil when none exists.
	LatestForDataset(ctx context.Context, datasetID types.ID, pipelineName string) (*Run, error)

	// ListByDataset retrieves all runs for a dataset, newest first.
	ListByDataset(ctx context.Context, datasetID types.ID) ([]*Run, error)

	// MarkProcessing transitions a queued run to processing.
	MarkProcessing(ctx context.Context, id types.ID) error

	// MarkCompleted transitions a run to completed.
	MarkCompleted(ctx context.Context, id types.ID) error

	// MarkErrored transitions a run to errored with the given message.
	MarkErrored(ctx context.Context, id types.ID, message string) error
}

// DBRunStore implements RunStore using SQLite.
type DBRunStore struct {
	db *database.DB
}

// NewDBRunStore creates a database-backed run store.
func NewDBRunStore(db *database.DB) *DBRunStore {
	return &DBRunStore{db: db}
}

const runColumns = `
	id, pipeline_name, dataset_id, principal_id, status,
	error, created_at, started_at, finished_at, updated_at
`

// Start inserts the run inside a transaction that first verifies no
// sibling run is queued or processing. A queued row is always owned by
// a live executor that is about to promote it, so it blocks the slot
// the same way a processing one does. The check and the insert share
// one transaction so two racing callers cannot both pass the check.
func (s *DBRunStore) Start(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var active int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pipeline_runs
			 WHERE dataset_id = ? AND pipeline_name = ? AND status IN (?, ?)`,
			run.DatasetID.String(), run.PipelineName,
			string(RunStatusQueued), string(RunStatusProcessing),
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("failed to check active runs: %w", err)
		}
		if active > 0 {
			return types.NewConflictError(fmt.Sprintf(
				"pipeline %q is already running against dataset %s",
				run.PipelineName, run.DatasetID.Short()))
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO pipeline_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID.String(),
			run.PipelineName,
			run.DatasetID.String(),
			run.PrincipalID.String(),
			string(run.Status),
			nullString(run.Error),
			run.CreatedAt,
			run.StartedAt,
			run.FinishedAt,
			run.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		return nil
	})
}

// Get retrieves a run by ID.
func (s *DBRunStore) Get(ctx context.Context, id types.ID) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id.String())
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError("pipeline run", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LatestForDataset retrieves the most recent run, or nil when the
// dataset has never been processed by the named pipeline.
func (s *DBRunStore) LatestForDataset(ctx context.Context, datasetID types.ID, pipelineName string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs
		 WHERE dataset_id = ? AND pipeline_name = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		datasetID.String(), pipelineName)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListByDataset retrieves all runs for a dataset, newest first.
func (s *DBRunStore) ListByDataset(ctx context.Context, datasetID types.ID) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs
		 WHERE dataset_id = ?
		 ORDER BY created_at DESC, id DESC`,
		datasetID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// MarkProcessing transitions a queued run to processing and stamps
// its start time.
func (s *DBRunStore) MarkProcessing(ctx context.Context, id types.ID) error {
	now := time.Now()
	return s.updateStatus(ctx, id, RunStatusProcessing,
		`UPDATE pipeline_runs SET status = ?, started_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(RunStatusProcessing), now, now, id.String(),
		string(RunStatusQueued))
}

// MarkCompleted transitions a processing run to completed.
func (s *DBRunStore) MarkCompleted(ctx context.Context, id types.ID) error {
	now := time.Now()
	return s.updateStatus(ctx, id, RunStatusCompleted,
		`UPDATE pipeline_runs SET status = ?, finished_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(RunStatusCompleted), now, now, id.String(),
		string(RunStatusProcessing))
}

// MarkErrored transitions a live run to errored and records the
// message. Queued is a legal prior state: a run can fail before its
// promotion to processing succeeds.
func (s *DBRunStore) MarkErrored(ctx context.Context, id types.ID, message string) error {
	now := time.Now()
	return s.updateStatus(ctx, id, RunStatusErrored,
		`UPDATE pipeline_runs SET status = ?, error = ?, finished_at = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(RunStatusErrored), message, now, now, id.String(),
		string(RunStatusQueued), string(RunStatusProcessing))
}

// updateStatus applies a guarded transition. When no row matches it
// distinguishes a missing run from an illegal transition, so terminal
// state is never silently overwritten.
func (s *DBRunStore) updateStatus(ctx context.Context, id types.ID, target RunStatus, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		current, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return types.NewConflictError(fmt.Sprintf(
			"run %s is %s, cannot transition to %s",
			id.Short(), current.Status, target))
	}
	return nil
}

func scanRun(scanner interface {
	Scan(dest ...interface{}) error
}) (*Run, error) {
	var (
		r          Run
		idStr      string
		dsStr      string
		prStr      string
		statusStr  string
		errorStr   sql.NullString
		startedAt  sql.NullTime
		finishedAt sql.NullTime
	)

	err := scanner.Scan(
		&idStr,
		&r.PipelineName,
		&dsStr,
		&prStr,
		&statusStr,
		&errorStr,
		&r.CreatedAt,
		&startedAt,
		&finishedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ID, err = types.ParseID(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}
	r.DatasetID, err = types.ParseID(dsStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset ID: %w", err)
	}
	r.PrincipalID, err = types.ParseID(prStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse principal ID: %w", err)
	}
	r.Status = RunStatus(statusStr)
	if errorStr.Valid {
		r.Error = errorStr.String
	}
	if startedAt.Valid {
		r.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Time
	}
	return &r, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ RunStore = (*DBRunStore)(nil)
