// Package staging reclaims per-job work directories left behind by crashes
// or interrupted runs.
package staging

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"bleep/internal/logging"
)

// JobDirPrefix prefixes every per-job work directory name.
const JobDirPrefix = "job-"

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// JobID returns the job id encoded in a work directory name.
func JobID(dirName string) (string, bool) {
	id, ok := strings.CutPrefix(dirName, JobDirPrefix)
	return id, ok && id != ""
}

// CleanStale deletes job-<id> directories under workDir whose mtime is
// older than maxAge, skipping any id for which active reports true.
// Failures are collected rather than aborting the sweep.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, active func(id string) bool, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult
	if logger == nil {
		logger = logging.NewNop()
	}

	dirs, err := ListDirectories(workDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		id, ok := JobID(dir.Name)
		if !ok || dir.ModTime.After(cutoff) || (active != nil && active(id)) {
			continue
		}
		if err := removeDir(logger, dir, id); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
	}
	return result
}

func removeDir(logger *slog.Logger, dir DirInfo, id string) error {
	if err := os.RemoveAll(dir.Path); err != nil {
		logging.WarnWithContext(logger, "failed to remove stale work directory", "work_cleanup_failed",
			logging.String("path", dir.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return err
	}
	logger.Info("removed stale work directory",
		logging.String("path", dir.Path),
		logging.String(logging.FieldJobID, id),
		logging.String("size", humanize.IBytes(uint64(max(dir.Size, 0)))),
		logging.Duration("age", time.Since(dir.ModTime)),
		logging.String(logging.FieldEventType, "work_cleanup"),
	)
	return nil
}

// DirInfo contains metadata about a work directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListDirectories returns the directories directly under workDir. A missing
// or empty workDir yields no entries.
func ListDirectories(workDir string) ([]DirInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(workDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(workDir, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    dirSize(path),
		})
	}
	return dirs, nil
}

// dirSize is best effort; unreadable entries count as zero.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
