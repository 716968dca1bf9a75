package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job in a transport-friendly format.
type Job struct {
	ID            string      `json:"id"`
	Source        string      `json:"source"`
	SourcePath    string      `json:"sourcePath,omitempty"`
	Status        string      `json:"status"`
	Tone          *bool       `json:"tone,omitempty"`
	Progress      JobProgress `json:"progress"`
	OutputName    string      `json:"outputName,omitempty"`
	OutputPath    string      `json:"outputPath,omitempty"`
	DownloadURL   string      `json:"downloadUrl,omitempty"`
	CensoredCount int         `json:"censoredCount"`
	ErrorKind     string      `json:"errorKind,omitempty"`
	ErrorMessage  string      `json:"errorMessage,omitempty"`
	CreatedAt     string      `json:"createdAt,omitempty"`
	UpdatedAt     string      `json:"updatedAt,omitempty"`
	StartedAt     string      `json:"startedAt,omitempty"`
	FinishedAt    string      `json:"finishedAt,omitempty"`
}

// JobProgress captures stage progress for a job.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Event is one live progress update streamed over the events websocket.
type Event struct {
	JobID       string  `json:"jobId"`
	Kind        string  `json:"kind"`
	Stage       string  `json:"stage,omitempty"`
	Percent     float64 `json:"percent"`
	Message     string  `json:"message,omitempty"`
	DownloadURL string  `json:"downloadUrl,omitempty"`
	ErrorKind   string  `json:"errorKind,omitempty"`
	Time        string  `json:"time,omitempty"`
}

// Terminal reports whether the event ends the job.
func (e Event) Terminal() bool {
	return e.Kind == "complete" || e.Kind == "error"
}

// SubmitRequest enqueues a local path or remote URL.
type SubmitRequest struct {
	Source     string `json:"source"`
	Tone       *bool  `json:"tone,omitempty"`
	OutputName string `json:"outputName,omitempty"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobCounts summarizes jobs by status.
type JobCounts struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Canceled   int `json:"canceled"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running   bool      `json:"running"`
	Active    []string  `json:"active"`
	LastError string    `json:"lastError,omitempty"`
	LastJob   *Job      `json:"lastJob,omitempty"`
	Counts    JobCounts `json:"counts"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	WatchDir     string             `json:"watchDir,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ClearResponse reports how many finished jobs were removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}
