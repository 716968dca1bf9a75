// Package fallback runs an ordered list of strategies until one succeeds.
//
// Each failed attempt is recorded with its strategy name so callers can report
// exactly what was tried. Strategies that do not apply to the input return
// Skip(reason) and are recorded without counting as a hard failure.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Strategy is one named way of producing a T.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Attempt records the outcome of a failed or skipped strategy.
type Attempt struct {
	Name    string
	Err     error
	Skipped bool
}

// ExhaustedError is returned when every strategy failed or was skipped.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "no strategies configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Skipped {
			parts = append(parts, fmt.Sprintf("%s skipped (%v)", a.Name, a.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", a.Name, a.Err))
	}
	return "all strategies failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Failed returns the attempts that ran and failed.
func (e *ExhaustedError) Failed() []Attempt {
	var out []Attempt
	for _, a := range e.Attempts {
		if !a.Skipped {
			out = append(out, a)
		}
	}
	return out
}

type skipError struct{ reason error }

func (s skipError) Error() string { return "skipped: " + s.reason.Error() }
func (s skipError) Unwrap() error { return s.reason }

type abortError struct{ err error }

func (a abortError) Error() string { return a.err.Error() }
func (a abortError) Unwrap() error { return a.err }

// Abort marks a failure that makes the remaining strategies pointless. Chain
// records it and stops.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return abortError{err: err}
}

// Skip marks a strategy as not applicable.
func Skip(reason error) error {
	if reason == nil {
		reason = errors.New("not applicable")
	}
	return skipError{reason: reason}
}

// IsSkip reports whether err was produced by Skip.
func IsSkip(err error) bool {
	var s skipError
	return errors.As(err, &s)
}

// Chain tries strategies in order and returns the first success. It stops
// early when ctx is done, returning the context error, or when a strategy
// fails with Abort.
func Chain[T any](ctx context.Context, strategies ...Strategy[T]) (T, error) {
	var zero T
	exhausted := &ExhaustedError{}
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := s.Run(ctx)
		if err == nil {
			return value, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		var skip skipError
		if errors.As(err, &skip) {
			exhausted.Attempts = append(exhausted.Attempts, Attempt{Name: s.Name, Err: skip.reason, Skipped: true})
			continue
		}
		var abort abortError
		if errors.As(err, &abort) {
			exhausted.Attempts = append(exhausted.Attempts, Attempt{Name: s.Name, Err: abort.err})
			return zero, exhausted
		}
		exhausted.Attempts = append(exhausted.Attempts, Attempt{Name: s.Name, Err: err})
	}
	return zero, exhausted
}
