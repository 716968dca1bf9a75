package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bleep/internal/logging"
)

// Start requeues jobs a previous run left in processing, then launches
// Concurrency workers plus the stale-work reclaimer. Workers stop when ctx
// is canceled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	runCtx, err := m.markRunning(ctx)
	if err != nil {
		return err
	}
	m.requeueInterrupted(ctx)

	go m.reclaimLoop(runCtx)
	for id := range m.opts.Concurrency {
		go m.runWorker(runCtx, id)
	}
	m.logger.Info("workflow started",
		logging.Int("concurrency", m.opts.Concurrency),
		logging.Duration("poll_interval", m.opts.PollInterval),
		logging.String(logging.FieldEventType, "workflow_start"),
	)
	return nil
}

func (m *Manager) markRunning(ctx context.Context) (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.running:
		return nil, errors.New("workflow already running")
	case m.processor == nil || m.acquirer == nil:
		return nil, errors.New("workflow processor not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel, m.running = cancel, true
	m.wg.Add(m.opts.Concurrency + 1)
	return runCtx, nil
}

func (m *Manager) requeueInterrupted(ctx context.Context) {
	n, err := m.store.RequeueProcessing(ctx)
	switch {
	case err != nil:
		logging.WarnWithContext(m.logger, "failed to requeue interrupted jobs", "requeue_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
			logging.String(logging.FieldImpact, "interrupted jobs stay in processing until reclaimed"),
		)
	case n > 0:
		m.logger.Info("requeued interrupted jobs", logging.Int64("count", n))
	}
}

// Stop cancels in-flight jobs and blocks until every worker has returned.
// Calling it on a stopped manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	wasRunning := m.running
	m.running, m.cancel = false, nil
	m.mu.Unlock()
	if !wasRunning {
		return
	}

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stop"))
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))
	for ctx.Err() == nil {
		if !m.claimAndRun(ctx, logger) {
			m.pause(ctx, m.opts.PollInterval, m.wake)
		}
	}
}

// claimAndRun processes one queued job. It returns false when the worker
// should back off: the queue was empty or the claim failed.
func (m *Manager) claimAndRun(ctx context.Context, logger *slog.Logger) bool {
	job, err := m.store.ClaimNext(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.setLastError(err)
			logging.ErrorWithContext(logger, "failed to claim next job", "job_claim_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
			m.pause(ctx, errorRetryInterval, nil)
		}
		return true
	}
	if job == nil {
		return false
	}
	m.runJob(ctx, logger, job)
	return true
}

// pause waits for d, ctx cancellation, or a signal on wake (nil never fires).
func (m *Manager) pause(ctx context.Context, d time.Duration, wake <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-wake:
	case <-timer.C:
	}
}
