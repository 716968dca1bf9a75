package workflow

import (
	"context"
	"errors"
	"time"

	"bleep/internal/logging"
)

// reclaimLoop periodically requeues processing jobs whose heartbeat is
// older than StaleAfter.
func (m *Manager) reclaimLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := m.store.ReclaimStale(ctx, time.Now().Add(-m.opts.StaleAfter))
		if err != nil {
			if ctx.Err() == nil {
				logging.WarnWithContext(m.logger, "reclaim stale jobs failed; stuck jobs may remain", "heartbeat_reclaim_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check job database access"),
				)
			}
			continue
		}
		if n > 0 {
			m.logger.Info("reclaimed stale jobs", logging.Int64("count", n))
			m.Wake()
		}
	}
}

// heartbeat refreshes the job's liveness until ctx ends.
func (m *Manager) heartbeat(ctx context.Context, id string, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()
	logger := logging.WithContext(ctx, m.logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.store.Heartbeat(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
