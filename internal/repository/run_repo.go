package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/themizzi/retailcheck/internal/database"
	"github.com/themizzi/retailcheck/internal/models"
)

// ErrRunNotFound is returned when no run has the requested ID
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps List when no limit is given
const DefaultListLimit = 100

// RunRepository handles database operations for runs
type RunRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewRunRepository creates a run repository on the shared connection
func NewRunRepository() *RunRepository {
	return &RunRepository{
		db:      database.DB,
		dialect: database.Current,
	}
}

// NewRunRepositoryWithDB creates a run repository with a specific database connection
func NewRunRepositoryWithDB(db *sql.DB, dialect database.Dialect) *RunRepository {
	return &RunRepository{
		db:      db,
		dialect: dialect,
	}
}

const runColumns = `id, scenario, attempt, status, error_kind, message, teardown_error,
	screenshot_path, video_path, started_at, finished_at`

// CreateRun inserts a new run
func (r *RunRepository) CreateRun(ctx context.Context, run *models.Run) error {
	query := database.Rebind(r.dialect, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Scenario,
		run.Attempt,
		string(run.Status),
		string(run.ErrorKind),
		run.Message,
		run.TeardownError,
		run.ScreenshotPath,
		run.VideoPath,
		run.StartedAt.UTC(),
		nullTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateRun stores the outcome, teardown error and artifacts of a run
func (r *RunRepository) UpdateRun(ctx context.Context, run *models.Run) error {
	query := database.Rebind(r.dialect, `
		UPDATE runs
		SET status = ?, error_kind = ?, message = ?, teardown_error = ?,
		    screenshot_path = ?, video_path = ?, finished_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		string(run.ErrorKind),
		run.Message,
		run.TeardownError,
		run.ScreenshotPath,
		run.VideoPath,
		nullTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// GetRunByID retrieves a run by its ID
func (r *RunRepository) GetRunByID(ctx context.Context, id string) (*models.Run, error) {
	query := database.Rebind(r.dialect, `SELECT `+runColumns+` FROM runs WHERE id = ?`)

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. An empty scenario lists every scenario.
func (r *RunRepository) ListRuns(ctx context.Context, scenario string, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY started_at DESC, attempt DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, database.Rebind(r.dialect, query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var (
		run        models.Run
		status     string
		errorKind  string
		finishedAt sql.NullTime
	)
	err := s.Scan(
		&run.ID,
		&run.Scenario,
		&run.Attempt,
		&status,
		&errorKind,
		&run.Message,
		&run.TeardownError,
		&run.ScreenshotPath,
		&run.VideoPath,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = models.RunStatus(status)
	run.ErrorKind = models.ErrorKind(errorKind)
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
