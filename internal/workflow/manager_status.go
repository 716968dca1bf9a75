package workflow

import (
	"context"
	"maps"
	"slices"

	"bleep/internal/jobs"
	"bleep/internal/logging"
)

// StatusSummary is what `bleep status` and GET /api/status report about
// the runner.
type StatusSummary struct {
	Running   bool         `json:"running"`
	Active    []string     `json:"active"`
	LastError string       `json:"last_error,omitempty"`
	LastJob   *jobs.Job    `json:"last_job,omitempty"`
	Jobs      jobs.Summary `json:"jobs"`
}

func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running: m.running,
		Active:  slices.Sorted(maps.Keys(m.active)),
		LastJob: cloneJob(m.lastJob),
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	counts, err := m.store.Summarize(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}
	summary.Jobs = counts
	return summary
}

func cloneJob(job *jobs.Job) *jobs.Job {
	if job == nil {
		return nil
	}
	c := *job
	return &c
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

func (m *Manager) setLastJob(job *jobs.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastJob = cloneJob(job)
}
