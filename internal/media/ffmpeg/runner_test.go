package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"bleep/internal/services"
)

func TestExecRunnerStreamsStdinStdoutAndProgress(t *testing.T) {
	var stdout bytes.Buffer
	var progress []float64
	result, err := ExecRunner{}.Run(context.Background(), Invocation{
		Binary:   "sh",
		Args:     []string{"-c", `printf 'Duration: 00:00:02.00\n' >&2; printf 'time=00:00:01.00\rtime=00:00:02.00\n' >&2; cat`},
		Stdin:    strings.NewReader("pcm-bytes"),
		Stdout:   &stdout,
		Progress: func(s float64) { progress = append(progress, s) },
		Label:    "decode",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.String() != "pcm-bytes" {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	if len(progress) != 2 || progress[0] != 1 || progress[1] != 2 {
		t.Fatalf("unexpected progress %v", progress)
	}
	if d, ok := ParseDuration(result.Diagnostics); !ok || d != 2 {
		t.Fatalf("expected duration header retained, got %q", result.Diagnostics)
	}
	if strings.Contains(result.Diagnostics, "time=") {
		t.Fatalf("progress lines should not be retained: %q", result.Diagnostics)
	}
}

func TestExecRunnerFailsOnExitCode(t *testing.T) {
	result, err := ExecRunner{}.Run(context.Background(), Invocation{
		Binary: "sh",
		Args:   []string{"-c", "echo 'No such file or directory' >&2; exit 3"},
		Label:  "extract",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if result.ExitCode != 3 {
		t.Fatalf("unexpected exit code %d", result.ExitCode)
	}
	if !errors.Is(err, services.ErrEncoding) || !strings.Contains(err.Error(), "No such file") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestExecRunnerFailsOnFatalPatternWithZeroExit(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Invocation{
		Binary: "sh",
		Args:   []string{"-c", "echo 'moov atom not found' >&2; exit 0"},
	})
	if err == nil || !strings.Contains(err.Error(), "moov atom not found") {
		t.Fatalf("expected fatal pattern error, got %v", err)
	}
}

func TestExecRunnerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExecRunner{}.Run(ctx, Invocation{Binary: "sh", Args: []string{"-c", "sleep 5"}})
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
}

func TestScanCRLF(t *testing.T) {
	data := []byte("a\rb\nc")
	var tokens []string
	for len(data) > 0 {
		adv, tok, _ := scanCRLF(data, true)
		tokens = append(tokens, string(tok))
		data = data[adv:]
	}
	if strings.Join(tokens, ",") != "a,b,c" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}

func TestExecRunnerUsesInvocationPatterns(t *testing.T) {
	script := "echo 'Invalid argument' >&2"
	if _, err := (ExecRunner{}).Run(context.Background(), Invocation{
		Binary:        "sh",
		Args:          []string{"-c", script},
		Label:         "downloader",
		FatalPatterns: []string{"ERROR:"},
	}); err != nil {
		t.Fatalf("expected custom patterns to replace ffmpeg's, got %v", err)
	}

	_, err := ExecRunner{}.Run(context.Background(), Invocation{
		Binary:        "sh",
		Args:          []string{"-c", "echo 'ERROR: gone' >&2"},
		Label:         "downloader",
		FatalPatterns: []string{"ERROR:"},
	})
	if err == nil || !strings.Contains(err.Error(), "ERROR:") {
		t.Fatalf("expected custom pattern to fail the run, got %v", err)
	}
}
