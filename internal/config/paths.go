package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnsureDirectories creates the work, output and log directories, plus the
// watch directory when one is configured.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir}
	if w := strings.TrimSpace(c.Paths.WatchDir); w != "" {
		dirs = append(dirs, w)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func (c *Config) FFmpegBinary() string { return orDefault(c.FFmpeg.FFmpegBinary, defaultFFmpegBinary) }
func (c *Config) FFprobeBinary() string {
	return orDefault(c.FFmpeg.FFprobeBinary, defaultFFprobeBinary)
}

// YTDLPBinary is used only for http(s) sources.
func (c *Config) YTDLPBinary() string { return orDefault(c.FFmpeg.YTDLPBinary, defaultYTDLPBinary) }

// StabilityTimeout bounds how long validation waits for the output size to settle.
func (c *Config) StabilityTimeout() time.Duration {
	return time.Duration(c.Validation.StabilityTimeoutSeconds) * time.Second
}

func (c *Config) StabilityInterval() time.Duration {
	return time.Duration(c.Validation.StabilityIntervalMillis) * time.Millisecond
}

// DatabasePath is the sqlite job store, kept beside the logs.
func (c *Config) DatabasePath() string { return filepath.Join(c.Paths.LogDir, "jobs.db") }

func (c *Config) LogFilePath() string { return filepath.Join(c.Paths.LogDir, "bleep.log") }
