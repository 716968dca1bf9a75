package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bleep/internal/config"
	"bleep/internal/pipeline"
	"bleep/internal/progress"
	"bleep/internal/testsupport"
)

type processorFunc func(ctx context.Context, req pipeline.Request, sink progress.Sink) (pipeline.Result, error)

func (f processorFunc) Process(ctx context.Context, req pipeline.Request, sink progress.Sink) (pipeline.Result, error) {
	return f(ctx, req, sink)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	processor  processor
}

// setupCLITestEnv writes a config whose API bind points at a closed port, so
// commands fall back to the job database unless a test starts a daemon.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("OPENAI_API_KEY", "")
	cfg.Paths.APIBind = freeAddr(t)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		processor:  writeOutputProcessor(2),
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return addr
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
work_dir = %q
output_dir = %q
log_dir = %q
api_bind = %q

[transcription]
api_key = "sk-test"
base_url = "http://127.0.0.1:1/v1"

[validation]
stability_interval_ms = 5
stability_timeout_seconds = 1

[workflow]
queue_poll_interval = 1

[logging]
level = "error"
`, cfg.Paths.WorkDir, cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.APIBind)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeOutputProcessor reports one progress step, writes the output file and
// completes with the given censored count.
func writeOutputProcessor(censored int) processorFunc {
	return func(ctx context.Context, req pipeline.Request, sink progress.Sink) (pipeline.Result, error) {
		_ = sink(progress.Event{
			JobID:   req.JobID,
			Kind:    progress.KindProgress,
			Stage:   pipeline.StageTranscribing.Name,
			Percent: pipeline.StageTranscribing.Percent,
			Message: pipeline.StageTranscribing.Message,
			Time:    time.Now(),
		})
		name := req.OutputName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath)) + "_censored.mp4"
		}
		out := filepath.Join(req.OutputDir, name)
		if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
			return pipeline.Result{}, err
		}
		if err := os.WriteFile(out, bytes.Repeat([]byte{0}, 1024), 0o644); err != nil {
			return pipeline.Result{}, err
		}
		_ = sink(progress.Event{
			JobID:      req.JobID,
			Kind:       progress.KindComplete,
			Stage:      pipeline.StageComplete.Name,
			Percent:    100,
			Message:    pipeline.StageComplete.Message,
			OutputPath: out,
			Time:       time.Now(),
		})
		return pipeline.Result{
			JobID:          req.JobID,
			OutputFilename: name,
			OutputPath:     out,
			CensoredCount:  censored,
		}, nil
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	return runCLIContext(context.Background(), env, args...)
}

func runCLIContext(ctx context.Context, env *cliTestEnv, args ...string) (string, string, error) {
	cmdCtx := newCommandContext()
	if env.processor != nil {
		proc := env.processor
		cmdCtx.newProcessor = func(*config.Config, *slog.Logger) (processor, error) { return proc, nil }
	}
	cmd := buildRootCommand(cmdCtx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writeVideo(t *testing.T, env *cliTestEnv, name string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, "inbox", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir inbox: %v", err)
	}
	testsupport.WriteMP4(t, path, 4096)
	return path
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
