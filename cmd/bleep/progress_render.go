package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"bleep/internal/logging"
	"bleep/internal/progress"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiClear  = "\x1b[2K"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressRenderer prints pipeline progress. On a terminal it redraws one
// line; otherwise it prints a line per stage and per ten percent.
type progressRenderer struct {
	out         io.Writer
	interactive bool
	sampler     *logging.ProgressSampler
	drawn       bool
}

func newProgressRenderer(out io.Writer) *progressRenderer {
	return &progressRenderer{
		out:         out,
		interactive: isTerminal(out),
		sampler:     logging.NewProgressSampler(10),
	}
}

func (r *progressRenderer) render(stage string, percent float64, message string) {
	line := formatProgress(stage, percent, message)
	if r.interactive {
		fmt.Fprintf(r.out, "\r%s%s", ansiClear, line)
		r.drawn = true
		return
	}
	if r.sampler.ShouldLog(percent, stage) {
		fmt.Fprintln(r.out, line)
	}
}

// finish ends the progress line and prints the terminal outcome.
func (r *progressRenderer) finish(ok bool, message string) {
	if r.drawn {
		fmt.Fprintln(r.out)
		r.drawn = false
	}
	label, color := "done", ansiGreen
	if !ok {
		label, color = "failed", ansiRed
	}
	if r.interactive {
		fmt.Fprintf(r.out, "%s%s%s: %s\n", color, label, ansiReset, message)
		return
	}
	fmt.Fprintf(r.out, "%s: %s\n", label, message)
}

// sink adapts the renderer to pipeline events. Terminal events are left to
// the caller, which knows the final result.
func (r *progressRenderer) sink() progress.Sink {
	return func(e progress.Event) error {
		if e.Kind == progress.KindProgress {
			r.render(e.Stage, e.Percent, e.Message)
		}
		return nil
	}
}

func formatProgress(stage string, percent float64, message string) string {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "pending"
	}
	line := fmt.Sprintf("[%-12s] %3.0f%%", stage, percent)
	if message = strings.TrimSpace(message); message != "" {
		line += "  " + message
	}
	return line
}
