package jobs

import (
	"context"
	"fmt"
	"time"
)

// Summarize counts jobs by status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch status {
		case StatusQueued:
			summary.Queued += count
		case StatusProcessing:
			summary.Processing += count
		case StatusCompleted:
			summary.Completed += count
		case StatusFailed:
			summary.Failed += count
		case StatusCanceled:
			summary.Canceled += count
		}
	}
	return summary, rows.Err()
}

// RequeueProcessing returns every processing job to queued. It runs at
// daemon startup, when nothing can still be working on them.
func (s *Store) RequeueProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, progress_stage = 'queued', progress_percent = 0,
             progress_message = 'Requeued after restart', last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusQueued, formatTime(time.Now()), StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("requeue processing: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStale returns processing jobs whose heartbeat predates cutoff to
// queued.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, progress_stage = 'queued', progress_percent = 0,
             progress_message = 'Reclaimed from stale processing', last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusQueued, formatTime(time.Now()), StatusProcessing, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}
