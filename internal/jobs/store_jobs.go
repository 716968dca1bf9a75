package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no job has the requested id.
var ErrNotFound = errors.New("job not found")

// Enqueue inserts a queued job.
func (s *Store) Enqueue(ctx context.Context, req NewJob) (*Job, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return nil, errors.New("enqueue: empty source")
	}
	id := uuid.NewString()
	now := formatTime(time.Now())
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, source, status, tone, output_name, progress_stage, progress_percent, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, source, StatusQueued, nullableBool(req.Tone), nullableString(req.OutputName), "queued", now, now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by id, returning ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first, filtered by status when any are given.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	}
	query += ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, statusArgs(statuses)...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ClaimNext moves the oldest queued job to processing and returns it. It
// returns nil when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	var claimed *Job
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var id string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`, StatusQueued,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return nil
		}
		if err != nil {
			return err
		}
		now := formatTime(time.Now())
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?,
                 progress_stage = 'starting', progress_percent = 0, progress_message = NULL,
                 error_kind = NULL, error_message = NULL
             WHERE id = ? AND status = ?`,
			StatusProcessing, now, now, now, id, StatusQueued,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			claimed = nil
			return tx.Commit()
		}
		job, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
		if err != nil {
			return err
		}
		claimed = job
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return claimed, nil
}

// SetSourcePath records the acquired local file for a job.
func (s *Store) SetSourcePath(ctx context.Context, id, path string) error {
	return s.updateOne(ctx, "set source path",
		`UPDATE jobs SET source_path = ?, updated_at = ? WHERE id = ?`,
		path, formatTime(time.Now()), id)
}

// UpdateProgress persists the latest progress of a processing job and
// refreshes its heartbeat.
func (s *Store) UpdateProgress(ctx context.Context, id, stage string, percent float64, message string) error {
	now := formatTime(time.Now())
	return s.updateOne(ctx, "update progress",
		`UPDATE jobs SET progress_stage = ?, progress_percent = ?, progress_message = ?,
             last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		nullableString(stage), percent, nullableString(message), now, now, id, StatusProcessing)
}

// Heartbeat refreshes the liveness timestamp of a processing job.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	return s.updateOne(ctx, "heartbeat",
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now, now, id, StatusProcessing)
}

// Complete marks a job finished with its output.
func (s *Store) Complete(ctx context.Context, id, outputPath string, censored int) error {
	now := formatTime(time.Now())
	return s.updateOne(ctx, "complete job",
		`UPDATE jobs SET status = ?, output_path = ?, censored_count = ?, progress_stage = 'complete',
             progress_percent = 100, progress_message = 'Complete', finished_at = ?, updated_at = ?
         WHERE id = ?`,
		StatusCompleted, outputPath, censored, now, now, id)
}

// Fail marks a job failed with a classified reason.
func (s *Store) Fail(ctx context.Context, id, kind, message string) error {
	status := StatusFailed
	if kind == "canceled" {
		status = StatusCanceled
	}
	now := formatTime(time.Now())
	return s.updateOne(ctx, "fail job",
		`UPDATE jobs SET status = ?, error_kind = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE id = ?`,
		status, nullableString(kind), nullableString(message), now, now, id)
}

// CancelQueued cancels a job that has not started. It reports false when the
// job is no longer queued.
func (s *Store) CancelQueued(ctx context.Context, id string) (bool, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_kind = 'canceled', error_message = 'canceled before start',
             finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCanceled, now, now, id, StatusQueued)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Retry re-queues failed or canceled jobs. With no ids every such job is
// re-queued.
func (s *Store) Retry(ctx context.Context, ids ...string) (int64, error) {
	query := `UPDATE jobs SET status = ?, progress_stage = 'queued', progress_percent = 0,
             progress_message = 'Retry requested', error_kind = NULL, error_message = NULL,
             started_at = NULL, finished_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?)`
	args := []any{StatusQueued, formatTime(time.Now()), StatusFailed, StatusCanceled}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry jobs: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a job that is not processing.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ? AND status != ?`, id, StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearFinished deletes every completed, failed, and canceled job.
func (s *Store) ClearFinished(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status IN (?, ?, ?)`,
		StatusCompleted, StatusFailed, StatusCanceled)
	if err != nil {
		return 0, fmt.Errorf("clear finished: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
