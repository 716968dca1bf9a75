package jobs

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

var allStatuses = []Status{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCanceled}

// ParseStatus normalizes a user-supplied status name.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range allStatuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Terminal reports whether no further work will happen for the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// Job is one persisted censoring request.
type Job struct {
	ID string `json:"id"`
	// Source is what the user submitted: a local path or a URL.
	Source string `json:"source"`
	// SourcePath is the local file once acquired.
	SourcePath string `json:"source_path,omitempty"`
	Status     Status `json:"status"`
	// Tone overrides the configured tone/silence choice when set.
	Tone          *bool  `json:"tone,omitempty"`
	OutputName    string `json:"output_name,omitempty"`
	OutputPath    string `json:"output_path,omitempty"`
	CensoredCount int    `json:"censored_count"`

	ProgressStage   string  `json:"progress_stage,omitempty"`
	ProgressPercent float64 `json:"progress_percent"`
	ProgressMessage string  `json:"progress_message,omitempty"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// NewJob describes a job to enqueue.
type NewJob struct {
	Source     string
	Tone       *bool
	OutputName string
}

// Summary counts jobs by lifecycle bucket.
type Summary struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Canceled   int `json:"canceled"`
}
