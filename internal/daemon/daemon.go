package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"bleep/internal/config"
	"bleep/internal/deps"
	"bleep/internal/fileutil"
	"bleep/internal/jobs"
	"bleep/internal/logging"
	"bleep/internal/preflight"
	"bleep/internal/staging"
	"bleep/internal/watch"
	"bleep/internal/workflow"
)

// Daemon owns the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	workflow *workflow.Manager
	api      *apiServer
	watcher  *watch.Watcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	WatchDir     string
	APIAddress   string
	Workflow     workflow.StatusSummary
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := filepath.Join(cfg.Paths.LogDir, "bleep.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager, the
// watch folder and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bleep daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.reclaimWorkDirs(runCtx)
	go d.logPreflight(runCtx)

	if err := d.workflow.Start(runCtx); err != nil {
		d.abortStart(cancel)
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.cfg.Paths.WatchDir != "" {
		w, err := watch.New(watch.Options{
			Dir:       d.cfg.Paths.WatchDir,
			Stability: fileutil.StabilityOptions{Interval: d.cfg.StabilityInterval(), Checks: 3},
		}, d.workflow, d.logger)
		if err == nil {
			err = w.Start(runCtx)
		}
		if err != nil {
			d.workflow.Stop()
			d.abortStart(cancel)
			return fmt.Errorf("start watch folder: %w", err)
		}
		d.watcher = w
	}
	if err := d.api.start(runCtx); err != nil {
		d.stopWatcher()
		d.workflow.Stop()
		d.abortStart(cancel)
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("bleep daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) abortStart(cancel context.CancelFunc) {
	cancel()
	_ = d.lock.Unlock()
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop()
	d.stopWatcher()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report a running instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("bleep daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) stopWatcher() {
	if d.watcher == nil {
		return
	}
	if err := d.watcher.Close(); err != nil {
		d.logger.Debug("watch close", logging.Error(err))
	}
	d.watcher = nil
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// APIAddress returns the address the API server listens on, or "" when it
// is disabled or not started.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		WatchDir:     d.cfg.Paths.WatchDir,
		APIAddress:   d.api.address(),
		Workflow:     d.workflow.Status(ctx),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

// reclaimWorkDirs removes job work directories older than the configured
// threshold. No job is running yet, so every old directory is an orphan.
func (d *Daemon) reclaimWorkDirs(ctx context.Context) {
	maxAge := time.Duration(d.cfg.Workflow.StaleWorkHours) * time.Hour
	if maxAge <= 0 {
		return
	}
	result := staging.CleanStale(ctx, d.cfg.Paths.WorkDir, maxAge, nil, d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("reclaimed stale work directories",
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "work_cleanup_summary"),
		)
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, r := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run `bleep status` for details"),
			logging.String(logging.FieldImpact, "jobs may fail until this is fixed"),
		)
	}
}
