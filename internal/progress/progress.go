// Package progress carries pipeline progress from a running job to whoever
// is watching it: the CLI, the job store, or websocket clients.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bleep/internal/logging"
	"bleep/internal/services"
)

// Kind classifies an event.
type Kind string

const (
	KindProgress Kind = "progress"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
)

// Event is one progress update.
type Event struct {
	JobID      string                  `json:"job_id,omitempty"`
	Kind       Kind                    `json:"kind"`
	Stage      string                  `json:"stage,omitempty"`
	Percent    float64                 `json:"percent"`
	Message    string                  `json:"message,omitempty"`
	OutputPath string                  `json:"output_path,omitempty"`
	Error      *services.FailureDetail `json:"error,omitempty"`
	Time       time.Time               `json:"time"`
}

// Terminal reports whether e ends a job.
func (e Event) Terminal() bool {
	return e.Kind == KindComplete || e.Kind == KindError
}

// Sink receives events. Returning an error marks the sink as closed.
type Sink func(Event) error

// Discard ignores every event.
func Discard(Event) error { return nil }

// Tee forwards each event to all sinks, returning the first error.
func Tee(sinks ...Sink) Sink {
	return func(e Event) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s(e); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}

// SafeSink shields a job from its sink. Panics and errors are logged and
// stop further delivery; the job itself keeps running. At most one terminal
// event is delivered.
type SafeSink struct {
	mu       sync.Mutex
	sink     Sink
	jobID    string
	logger   *slog.Logger
	closed   bool
	terminal bool
	last     float64
	now      func() time.Time
}

// NewSafeSink wraps sink. A nil sink discards events.
func NewSafeSink(jobID string, sink Sink, logger *slog.Logger) *SafeSink {
	if sink == nil {
		sink = Discard
	}
	return &SafeSink{
		sink:   sink,
		jobID:  jobID,
		logger: logging.NewComponentLogger(logger, "progress"),
		now:    time.Now,
	}
}

// Progress reports a non-terminal update. Percent never moves backwards.
func (s *SafeSink) Progress(stage string, percent float64, message string) {
	s.emit(Event{Kind: KindProgress, Stage: stage, Percent: percent, Message: message})
}

// Complete reports success.
func (s *SafeSink) Complete(outputPath, message string) {
	s.emit(Event{Kind: KindComplete, Stage: "complete", Percent: 100, Message: message, OutputPath: outputPath})
}

// Fail reports err as the terminal failure.
func (s *SafeSink) Fail(stage string, err error) {
	detail := services.Details(err)
	s.emit(Event{Kind: KindError, Stage: stage, Message: detail.Message, Error: &detail})
}

// Terminated reports whether a terminal event has been emitted.
func (s *SafeSink) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

func (s *SafeSink) emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	if e.Terminal() {
		s.terminal = true
	}
	if e.Kind == KindProgress {
		if e.Percent < s.last {
			e.Percent = s.last
		}
		s.last = e.Percent
	} else if e.Kind == KindError {
		e.Percent = s.last
	}
	if s.closed {
		return
	}
	e.JobID = s.jobID
	e.Time = s.now().UTC()
	if err := s.deliver(e); err != nil {
		s.closed = true
		logging.WarnWithContext(s.logger, "progress sink failed; further updates dropped", "progress_sink_closed",
			logging.String(logging.FieldJobID, s.jobID),
			logging.String(logging.FieldErrorHint, "the client likely disconnected"),
			logging.String(logging.FieldImpact, "job continues without live progress"),
			logging.Error(err),
		)
	}
}

func (s *SafeSink) deliver(e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.sink(e)
}
