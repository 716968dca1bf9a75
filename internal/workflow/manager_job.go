package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bleep/internal/jobs"
	"bleep/internal/logging"
	"bleep/internal/notifications"
	"bleep/internal/pipeline"
	"bleep/internal/progress"
	"bleep/internal/services"
)

const stageAcquiring = "acquiring"

func (m *Manager) runJob(ctx context.Context, logger *slog.Logger, job *jobs.Job) {
	jobCtx, cancel := context.WithCancel(services.WithJobID(ctx, job.ID))
	m.track(job.ID, cancel)
	defer func() {
		cancel()
		m.untrack(job.ID)
	}()
	logger = logging.WithContext(jobCtx, logger)
	m.setLastJob(job)

	hbCtx, stopHeartbeat := context.WithCancel(jobCtx)
	hbDone := make(chan struct{})
	go m.heartbeat(hbCtx, job.ID, hbDone)
	defer func() {
		stopHeartbeat()
		<-hbDone
	}()

	// Final state is persisted even when the manager is stopping.
	persistCtx := context.WithoutCancel(jobCtx)
	workDir := filepath.Join(m.opts.WorkDir, pipeline.JobDirPrefix+job.ID)
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logging.WarnWithContext(logger, "failed to remove job work dir", "temp_cleanup_failed",
				logging.String("path", workDir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "disk space not reclaimed until stale cleanup"),
			)
		}
	}()

	m.hub.Publish(progress.Event{
		JobID:   job.ID,
		Kind:    progress.KindProgress,
		Stage:   stageAcquiring,
		Message: "Acquiring source",
		Time:    time.Now().UTC(),
	})
	source, err := m.acquirer.Acquire(services.WithStage(jobCtx, stageAcquiring), job.Source, workDir)
	if err != nil {
		detail := services.Details(err)
		m.hub.Publish(progress.Event{
			JobID:   job.ID,
			Kind:    progress.KindError,
			Stage:   stageAcquiring,
			Message: detail.Message,
			Error:   &detail,
			Time:    time.Now().UTC(),
		})
		m.finish(ctx, persistCtx, logger, job, pipeline.Result{}, err)
		return
	}
	if err := m.store.SetSourcePath(persistCtx, job.ID, source); err != nil {
		logger.Warn("failed to record source path", logging.Error(err))
	}

	sink := progress.Tee(m.hub.Sink(job.ID), newPersistSink(persistCtx, m.store, job.ID, logger))
	result, err := m.processor.Process(jobCtx, pipeline.Request{
		JobID:      job.ID,
		InputPath:  source,
		OutputDir:  m.opts.OutputDir,
		OutputName: job.OutputName,
		Tone:       job.Tone,
	}, sink)
	m.finish(ctx, persistCtx, logger, job, result, err)
}

// finish records the outcome. A job interrupted by manager shutdown is left
// processing so the next start requeues it.
func (m *Manager) finish(runCtx, persistCtx context.Context, logger *slog.Logger, job *jobs.Job, result pipeline.Result, jobErr error) {
	if jobErr == nil {
		if err := m.store.Complete(persistCtx, job.ID, result.OutputPath, result.CensoredCount); err != nil {
			m.setLastError(err)
			logger.Error("failed to persist job completion", logging.Error(err),
				logging.String(logging.FieldEventType, "job_persist_failed"))
		}
		m.notify(logger, func(n notifications.Service) error {
			return n.NotifyJobCompleted(persistCtx, job.Source, result.OutputPath, result.CensoredCount)
		})
		return
	}
	if runCtx.Err() != nil {
		logger.Info("job interrupted by shutdown; it will be requeued on restart",
			logging.String(logging.FieldEventType, "job_interrupted"))
		return
	}
	detail := services.Details(jobErr)
	m.setLastError(jobErr)
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String("error_kind", detail.Kind),
		logging.Error(jobErr),
	)
	if err := m.store.Fail(persistCtx, job.ID, detail.Kind, detail.Message); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err),
			logging.String(logging.FieldEventType, "job_persist_failed"))
	}
	if detail.Kind != services.KindCanceled {
		m.notify(logger, func(n notifications.Service) error {
			return n.NotifyJobFailed(persistCtx, job.Source, detail.Kind, detail.Message)
		})
	}
}

func (m *Manager) notify(logger *slog.Logger, send func(notifications.Service) error) {
	if m.opts.Notifier == nil {
		return
	}
	if err := send(m.opts.Notifier); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "job outcome was not announced"),
		)
	}
}

// persistSink writes progress to the store whenever the stage changes or
// the percent advances by at least one point. Store errors are logged and
// swallowed so live clients keep receiving updates.
type persistSink struct {
	ctx    context.Context
	store  *jobs.Store
	id     string
	logger *slog.Logger

	mu        sync.Mutex
	lastStage string
	lastPct   float64
	warned    bool
}

func newPersistSink(ctx context.Context, store *jobs.Store, id string, logger *slog.Logger) progress.Sink {
	p := &persistSink{ctx: ctx, store: store, id: id, logger: logger, lastPct: -1}
	return p.handle
}

func (p *persistSink) handle(e progress.Event) error {
	if e.Kind != progress.KindProgress {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.Stage == p.lastStage && e.Percent-p.lastPct < 1 {
		return nil
	}
	p.lastStage, p.lastPct = e.Stage, e.Percent
	if err := p.store.UpdateProgress(p.ctx, p.id, e.Stage, e.Percent, e.Message); err != nil && !p.warned {
		p.warned = true
		logging.WarnWithContext(p.logger, "failed to persist job progress", "progress_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stored progress lags the live stream"),
		)
	}
	return nil
}
