package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"bleep/internal/services"
)

// Invocation describes a single ffmpeg (or ffprobe) execution.
type Invocation struct {
	Binary string
	Args   []string
	// Stdin is streamed to the process when non-nil.
	Stdin io.Reader
	// Stdout receives the process output; discarded when nil.
	Stdout io.Writer
	// Progress receives elapsed media seconds for every time= marker.
	Progress func(elapsed float64)
	// Label names the invocation in errors and logs.
	Label string
	// FatalPatterns replace the ffmpeg patterns when non-nil. An empty
	// non-nil slice leaves only the exit code.
	FatalPatterns []string
}

// Check classifies result against the invocation's fatal patterns.
func (inv Invocation) Check(result Result) error {
	patterns := inv.FatalPatterns
	if patterns == nil {
		patterns = fatalPatterns
	}
	return CheckPatterns(inv.label(), result, patterns)
}

// Result captures the outcome of an invocation.
type Result struct {
	ExitCode    int
	Diagnostics string
}

// Runner executes invocations.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecRunner runs invocations as local subprocesses.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for pipes after the process exits
	// or is killed. Zero means five seconds.
	WaitDelay time.Duration
}

// Run executes inv. The process is killed when ctx is canceled.
func (r ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	label := inv.label()
	if err := ctx.Err(); err != nil {
		return Result{}, services.Canceled(label, err)
	}

	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...) //nolint:gosec
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	if inv.Stdin != nil {
		cmd.Stdin = inv.Stdin
	}
	if inv.Stdout != nil {
		cmd.Stdout = inv.Stdout
	} else {
		cmd.Stdout = io.Discard
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, services.Wrap(services.ErrEncoding, label, "stderr pipe", "", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrEncoding, label, "start", inv.Binary, err)
	}

	// stdin and stdout are copied by exec's own goroutines while stderr is
	// drained here, so none of the pipes can stall the child.
	var diagnostics bytes.Buffer
	drainDiagnostics(stderr, &diagnostics, inv.Progress)

	waitErr := cmd.Wait()
	result := Result{ExitCode: exitCode(cmd, waitErr), Diagnostics: diagnostics.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, services.Canceled(label, ctxErr)
	}
	if err := inv.Check(result); err != nil {
		if waitErr != nil {
			return result, fmt.Errorf("%w (%v)", err, waitErr)
		}
		return result, err
	}
	return result, nil
}

func (inv Invocation) label() string {
	if label := strings.TrimSpace(inv.Label); label != "" {
		return label
	}
	return strings.TrimSpace(inv.Binary)
}

// drainDiagnostics reads stderr until EOF, treating carriage returns as line
// breaks so in-place progress updates are seen individually. Progress lines
// are reported but not retained.
func drainDiagnostics(r io.Reader, dst *bytes.Buffer, progress func(float64)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanCRLF)
	for scanner.Scan() {
		line := scanner.Text()
		if seconds, ok := ParseProgress(line); ok {
			if progress != nil {
				progress(seconds)
			}
			continue
		}
		if dst.Len() < maxDiagnosticBytes {
			dst.WriteString(line)
			dst.WriteByte('\n')
		}
	}
	// Keep draining so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

const maxDiagnosticBytes = 4 << 20

func scanCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
