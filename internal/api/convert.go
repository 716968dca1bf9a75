package api

import (
	"net/url"
	"path/filepath"
	"time"

	"bleep/internal/jobs"
	"bleep/internal/progress"
	"bleep/internal/workflow"
)

// VideoPath is the route prefix serving finished outputs.
const VideoPath = "/api/video/"

// DownloadURL returns the API path serving the output file at outputPath.
func DownloadURL(outputPath string) string {
	if outputPath == "" {
		return ""
	}
	return VideoPath + url.PathEscape(filepath.Base(outputPath))
}

// FromJob converts a stored job to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:         job.ID,
		Source:     job.Source,
		SourcePath: job.SourcePath,
		Status:     string(job.Status),
		Tone:       job.Tone,
		Progress: JobProgress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		OutputName:    job.OutputName,
		CensoredCount: job.CensoredCount,
		ErrorKind:     job.ErrorKind,
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     formatTime(job.CreatedAt),
		UpdatedAt:     formatTime(job.UpdatedAt),
	}
	if job.Status == jobs.StatusCompleted {
		dto.OutputPath = job.OutputPath
		dto.DownloadURL = DownloadURL(job.OutputPath)
	}
	if job.StartedAt != nil {
		dto.StartedAt = formatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = formatTime(*job.FinishedAt)
	}
	return dto
}

// FromJobs converts a list of stored jobs.
func FromJobs(list []*jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromEvent converts a progress event for the events stream.
func FromEvent(e progress.Event) Event {
	dto := Event{
		JobID:       e.JobID,
		Kind:        string(e.Kind),
		Stage:       e.Stage,
		Percent:     e.Percent,
		Message:     e.Message,
		DownloadURL: DownloadURL(e.OutputPath),
		Time:        formatTime(e.Time),
	}
	if e.Error != nil {
		dto.ErrorKind = e.Error.Kind
	}
	return dto
}

// EventFromJob renders persisted job state as an event, for stream clients
// that connect when no live event is available.
func EventFromJob(job *jobs.Job) Event {
	e := Event{
		JobID:   job.ID,
		Kind:    string(progress.KindProgress),
		Stage:   job.ProgressStage,
		Percent: job.ProgressPercent,
		Message: job.ProgressMessage,
		Time:    formatTime(job.UpdatedAt),
	}
	switch job.Status {
	case jobs.StatusCompleted:
		e.Kind = string(progress.KindComplete)
		e.Percent = 100
		e.DownloadURL = DownloadURL(job.OutputPath)
	case jobs.StatusFailed, jobs.StatusCanceled:
		e.Kind = string(progress.KindError)
		e.ErrorKind = job.ErrorKind
		e.Message = job.ErrorMessage
	}
	return e
}

// FromStatusSummary converts the workflow snapshot.
func FromStatusSummary(s workflow.StatusSummary) WorkflowStatus {
	dto := WorkflowStatus{
		Running:   s.Running,
		Active:    s.Active,
		LastError: s.LastError,
		Counts: JobCounts{
			Total:      s.Jobs.Total,
			Queued:     s.Jobs.Queued,
			Processing: s.Jobs.Processing,
			Completed:  s.Jobs.Completed,
			Failed:     s.Jobs.Failed,
			Canceled:   s.Jobs.Canceled,
		},
	}
	if dto.Active == nil {
		dto.Active = []string{}
	}
	if s.LastJob != nil {
		job := FromJob(s.LastJob)
		dto.LastJob = &job
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
