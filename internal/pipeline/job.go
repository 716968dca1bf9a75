package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bleep/internal/fileutil"
	"bleep/internal/logging"
	"bleep/internal/staging"
	"bleep/internal/textutil"

	"golang.org/x/sys/unix"
)

// JobDirPrefix names per-job work directories.
const JobDirPrefix = staging.JobDirPrefix

// Job holds the paths owned by one run. Paths under WorkDir are temporary.
// OutputPath is only written by publish, after FinalPath has been validated.
type Job struct {
	ID                string
	WorkDir           string
	InputPath         string
	AudioPath         string
	CensoredAudioPath string
	CombinedPath      string
	FinalPath         string
	OutputPath        string

	temps []string
}

func newJob(workRoot, id, input, outputDir, outputName string) (*Job, error) {
	if strings.TrimSpace(workRoot) == "" {
		return nil, fmt.Errorf("work directory not configured")
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("output directory not configured")
	}
	workDir := filepath.Join(workRoot, JobDirPrefix+id)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if outputName == "" {
		outputName = textutil.CensoredName(input, id)
	} else {
		outputName = textutil.SanitizeFileName(outputName)
		if !strings.EqualFold(filepath.Ext(outputName), ".mp4") {
			outputName += ".mp4"
		}
	}
	return &Job{
		ID:                id,
		WorkDir:           workDir,
		InputPath:         input,
		AudioPath:         filepath.Join(workDir, "extracted.wav"),
		CensoredAudioPath: filepath.Join(workDir, "censored.m4a"),
		CombinedPath:      filepath.Join(workDir, "combined.mp4"),
		FinalPath:         filepath.Join(workDir, "final.mp4"),
		OutputPath:        filepath.Join(outputDir, outputName),
	}, nil
}

// track registers a temporary artifact for cleanup and returns it.
func (j *Job) track(path string) string {
	j.temps = append(j.temps, path)
	return path
}

// Temps lists the registered temporary artifacts.
func (j *Job) Temps() []string {
	return append([]string(nil), j.temps...)
}

// stagingPath is a hidden sibling of OutputPath used when the work dir and
// output dir sit on different filesystems.
func (j *Job) stagingPath() string {
	return filepath.Join(filepath.Dir(j.OutputPath), "."+filepath.Base(j.OutputPath)+"."+j.ID+".partial")
}

// publish moves the validated FinalPath to OutputPath.
func (j *Job) publish() error {
	err := os.Rename(j.FinalPath, j.OutputPath)
	if err == nil || !errors.Is(err, unix.EXDEV) {
		return err
	}
	staged := j.track(j.stagingPath())
	if err := fileutil.CopyFileVerified(j.FinalPath, staged); err != nil {
		return fmt.Errorf("stage output: %w", err)
	}
	return os.Rename(staged, j.OutputPath)
}

// cleanup removes temporaries and the work directory. Removal failures are
// logged, never returned.
func (j *Job) cleanup(logger *slog.Logger) {
	for _, path := range j.temps {
		if err := fileutil.RemoveIfExists(path); err != nil {
			logging.WarnWithContext(logger, "failed to remove temp file", "temp_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
	if err := os.RemoveAll(j.WorkDir); err != nil {
		logging.WarnWithContext(logger, "failed to remove work dir", "temp_cleanup_failed",
			logging.String("path", j.WorkDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}
