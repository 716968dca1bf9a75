package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bleep/internal/config"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "bleep", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "bleep", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.WatchDir != "" {
		t.Fatalf("expected watch dir disabled by default, got %q", cfg.Paths.WatchDir)
	}
	if cfg.Transcription.APIKey != "sk-test" {
		t.Fatalf("expected API key from env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Transcription.Provider != config.ProviderOpenAI {
		t.Fatalf("unexpected provider: %q", cfg.Transcription.Provider)
	}
	if !cfg.Censor.ToneEnabled {
		t.Fatal("expected tone enabled by default")
	}
	if cfg.Censor.ToneFrequencyHz != 800 {
		t.Fatalf("unexpected tone frequency: %v", cfg.Censor.ToneFrequencyHz)
	}
	if cfg.Validation.MinOutputBytes != 100*1024 {
		t.Fatalf("unexpected min output bytes: %d", cfg.Validation.MinOutputBytes)
	}
	if cfg.StabilityInterval().Milliseconds() != 200 {
		t.Fatalf("unexpected stability interval: %s", cfg.StabilityInterval())
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.LogDir, "jobs.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "bleep.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"work_dir":   "~/work",
			"output_dir": filepath.Join(tempHome, "out"),
			"watch_dir":  "~/inbox",
		},
		"censor": map[string]any{
			"tone_enabled": false,
		},
		"transcription": map[string]any{
			"provider": "WhisperX",
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	payload["transcription"].(map[string]any)["language"] = "English"
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, "work") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Paths.WatchDir != filepath.Join(tempHome, "inbox") {
		t.Fatalf("unexpected watch dir: %q", cfg.Paths.WatchDir)
	}
	if cfg.Censor.ToneEnabled {
		t.Fatal("expected tone disabled from config file")
	}
	if cfg.Transcription.Provider != config.ProviderWhisperX {
		t.Fatalf("expected provider to be lowercased, got %q", cfg.Transcription.Provider)
	}
	if cfg.Transcription.Language != "en" {
		t.Fatalf("expected language normalized to en, got %q", cfg.Transcription.Language)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.WatchDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestConfigFileAPIKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("HOME", t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[transcription]\napi_key = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Transcription.APIKey != "from-file" {
		t.Fatalf("expected file key, got %q", cfg.Transcription.APIKey)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[paths\nwork_dir = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-sample")
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[transcription]") {
		t.Fatal("expected sample to include transcription section")
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "missing api key",
			mutate:  func(c *config.Config) { c.Transcription.APIKey = "" },
			wantErr: "transcription.api_key",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *config.Config) { c.Transcription.Provider = "vosk" },
			wantErr: "transcription.provider",
		},
		{
			name:    "tone above nyquist",
			mutate:  func(c *config.Config) { c.Censor.ToneFrequencyHz = 30000 },
			wantErr: "censor.tone_frequency_hz",
		},
		{
			name: "pyannote without token",
			mutate: func(c *config.Config) {
				c.Transcription.Provider = config.ProviderWhisperX
				c.WhisperX.VADMethod = "pyannote"
			},
			wantErr: "whisperx.hf_token",
		},
		{
			name:    "unknown language",
			mutate:  func(c *config.Config) { c.Transcription.Language = "not a language" },
			wantErr: "transcription.language",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "too much concurrency",
			mutate:  func(c *config.Config) { c.Workflow.Concurrency = 32 },
			wantErr: "workflow.concurrency",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Transcription.APIKey = "sk-valid"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
