package workflow

import (
	"context"

	"bleep/internal/jobs"
	"bleep/internal/logging"
)

// Retry re-queues failed or canceled jobs (all of them when ids is empty) and
// wakes the workers.
func (m *Manager) Retry(ctx context.Context, ids ...string) (int64, error) {
	n, err := m.store.Retry(ctx, ids...)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	// A remembered terminal event would end new event streams immediately.
	if len(ids) > 0 {
		m.forget(ids)
	} else {
		m.forgetStatus(ctx, jobs.StatusQueued)
	}
	m.logger.Info("jobs re-queued",
		logging.Int64("count", n),
		logging.String(logging.FieldEventType, "jobs_retried"),
	)
	m.Wake()
	return n, nil
}

// Remove deletes a job that is not processing.
func (m *Manager) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := m.store.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	m.hub.Forget(id)
	return true, nil
}

// ClearFinished deletes every completed, failed and canceled job.
func (m *Manager) ClearFinished(ctx context.Context) (int64, error) {
	finished, err := m.store.List(ctx, jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusCanceled)
	if err != nil {
		return 0, err
	}
	n, err := m.store.ClearFinished(ctx)
	if err != nil {
		return 0, err
	}
	for _, job := range finished {
		m.hub.Forget(job.ID)
	}
	return n, nil
}

func (m *Manager) forget(ids []string) {
	for _, id := range ids {
		m.hub.Forget(id)
	}
}

func (m *Manager) forgetStatus(ctx context.Context, status jobs.Status) {
	list, err := m.store.List(ctx, status)
	if err != nil {
		m.logger.Warn("failed to list jobs", logging.Error(err))
		return
	}
	for _, job := range list {
		if latest, ok := m.hub.Latest(job.ID); ok && latest.Terminal() {
			m.hub.Forget(job.ID)
		}
	}
}
