// Package watch enqueues video files that appear in the configured watch
// folder. A file is submitted once its size has settled, so partially copied
// uploads are not picked up.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"bleep/internal/acquire"
	"bleep/internal/fileutil"
	"bleep/internal/jobs"
	"bleep/internal/logging"
)

// Submitter receives settled files.
type Submitter interface {
	Submit(ctx context.Context, req jobs.NewJob) (*jobs.Job, error)
}

// Options configures a Watcher.
type Options struct {
	Dir string
	// Stability controls how long a file must keep the same size before it is
	// submitted.
	Stability fileutil.StabilityOptions
}

// Watcher submits new video files found in one directory.
type Watcher struct {
	opts   Options
	submit Submitter
	logger *slog.Logger

	fs   *fsnotify.Watcher
	wg   sync.WaitGroup
	stop context.CancelFunc

	mu        sync.Mutex
	pending   map[string]struct{}
	submitted map[string]time.Time
}

// New builds a watcher for opts.Dir. Call Start to begin watching.
func New(opts Options, submit Submitter, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("watch directory not configured")
	}
	if submit == nil {
		return nil, errors.New("watch requires a submitter")
	}
	if opts.Stability.Timeout <= 0 {
		opts.Stability.Timeout = 30 * time.Minute
	}
	if opts.Stability.Interval <= 0 {
		opts.Stability.Interval = time.Second
	}
	return &Watcher{
		opts:      opts,
		submit:    submit,
		logger:    logging.NewComponentLogger(logger, "watch"),
		pending:   make(map[string]struct{}),
		submitted: make(map[string]time.Time),
	}, nil
}

// Start registers the directory and processes events until ctx ends or Close
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.fs != nil {
		return errors.New("watcher already started")
	}
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(w.opts.Dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.opts.Dir, err)
	}
	w.fs = fsw

	runCtx, cancel := context.WithCancel(ctx)
	w.stop = cancel
	w.wg.Add(1)
	go w.run(runCtx)

	w.logger.Info("watching folder",
		logging.String("dir", w.opts.Dir),
		logging.String(logging.FieldEventType, "watch_started"),
	)
	return nil
}

// Close stops the watcher and waits for in-flight settles to finish.
func (w *Watcher) Close() error {
	if w.fs == nil {
		return nil
	}
	w.stop()
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "watch error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "files added now may be missed"),
			)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.mu.Lock()
		delete(w.submitted, path)
		w.mu.Unlock()
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !candidate(path) {
		return
	}

	w.mu.Lock()
	if _, busy := w.pending[path]; busy {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
		}()
		w.settle(ctx, path)
	}()
}

// settle waits for path to stop growing, then submits it unless the same
// version was already submitted.
func (w *Watcher) settle(ctx context.Context, path string) {
	size, err := fileutil.WaitStable(ctx, path, w.opts.Stability)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Debug("watch file never settled", logging.String("path", path), logging.Error(err))
		}
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	w.mu.Lock()
	if mod, ok := w.submitted[path]; ok && mod.Equal(info.ModTime()) {
		w.mu.Unlock()
		return
	}
	w.submitted[path] = info.ModTime()
	w.mu.Unlock()

	job, err := w.submit.Submit(ctx, jobs.NewJob{Source: path})
	if err != nil {
		w.mu.Lock()
		delete(w.submitted, path)
		w.mu.Unlock()
		logging.ErrorWithContext(w.logger, "failed to enqueue watched file", "watch_enqueue_failed",
			logging.String("path", path),
			logging.Error(err),
		)
		return
	}
	w.logger.Info("queued watched file",
		logging.String("path", path),
		logging.Int64("size_bytes", size),
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "watch_enqueued"),
	)
}

func candidate(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return acquire.IsVideoFile(name)
}
