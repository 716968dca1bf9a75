package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bleep/internal/acquire"
	"bleep/internal/config"
	"bleep/internal/jobs"
	"bleep/internal/logging"
	"bleep/internal/notifications"
	"bleep/internal/pipeline"
	"bleep/internal/progress"
)

// Processor runs one censoring job.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request, sink progress.Sink) (pipeline.Result, error)
}

// Options tunes the Manager.
type Options struct {
	Concurrency       int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	// StaleAfter is how old a heartbeat may get before the job is requeued.
	StaleAfter time.Duration
	WorkDir    string
	OutputDir  string
	// Notifier is told about completed and failed jobs. Nil disables it.
	Notifier notifications.Service
}

const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultStaleAfter        = 2 * time.Minute
	errorRetryInterval       = 2 * time.Second
)

// OptionsFromConfig maps configuration onto manager options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Concurrency:  cfg.Workflow.Concurrency,
		PollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		WorkDir:      cfg.Paths.WorkDir,
		OutputDir:    cfg.Paths.OutputDir,
		Notifier:     notifications.NewService(cfg),
	}
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = defaultStaleAfter
	}
	return o
}

// Manager coordinates job processing.
type Manager struct {
	opts      Options
	store     *jobs.Store
	processor Processor
	acquirer  acquire.Acquirer
	hub       *progress.Hub
	logger    *slog.Logger

	wake chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  map[string]context.CancelFunc
	lastErr error
	lastJob *jobs.Job
}

// NewManager constructs a manager. hub may be nil.
func NewManager(opts Options, store *jobs.Store, processor Processor, acquirer acquire.Acquirer, hub *progress.Hub, logger *slog.Logger) *Manager {
	if hub == nil {
		hub = progress.NewHub()
	}
	return &Manager{
		opts:      opts.withDefaults(),
		store:     store,
		processor: processor,
		acquirer:  acquirer,
		hub:       hub,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		wake:      make(chan struct{}, 1),
		active:    make(map[string]context.CancelFunc),
	}
}

// Hub returns the progress hub jobs publish to.
func (m *Manager) Hub() *progress.Hub { return m.hub }

// Store returns the job store.
func (m *Manager) Store() *jobs.Store { return m.store }

// Submit enqueues a job and wakes an idle worker.
func (m *Manager) Submit(ctx context.Context, req jobs.NewJob) (*jobs.Job, error) {
	job, err := m.store.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	m.hub.Publish(progress.Event{
		JobID:   job.ID,
		Kind:    progress.KindProgress,
		Stage:   pipeline.StageReceived.Name,
		Message: "Queued",
		Time:    time.Now().UTC(),
	})
	m.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.Source),
		logging.String(logging.FieldEventType, "job_queued"),
	)
	m.Wake()
	return job, nil
}

// Wake nudges idle workers to poll immediately.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Cancel stops a job. Queued jobs are canceled in the store; running jobs
// have their context canceled and are recorded when the pipeline returns.
func (m *Manager) Cancel(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	cancel, running := m.active[id]
	m.mu.RUnlock()
	if running {
		cancel()
		return true, nil
	}
	canceled, err := m.store.CancelQueued(ctx, id)
	if err != nil || !canceled {
		return canceled, err
	}
	m.hub.Publish(progress.Event{
		JobID:   id,
		Kind:    progress.KindError,
		Stage:   pipeline.StageReceived.Name,
		Message: "canceled before start",
		Time:    time.Now().UTC(),
	})
	return true, nil
}

func (m *Manager) track(id string, cancel context.CancelFunc) {
	m.mu.Lock()
	m.active[id] = cancel
	m.mu.Unlock()
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
