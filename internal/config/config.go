package config

// Paths holds filesystem locations and the API listen address.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	WatchDir  string `toml:"watch_dir"`
	APIBind   string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on API requests.
	APIToken string `toml:"api_token"`
}

// Censor controls how flagged audio spans are replaced.
type Censor struct {
	ToneEnabled     bool    `toml:"tone_enabled"`
	ToneFrequencyHz float64 `toml:"tone_frequency_hz"`
	AudioBitrate    string  `toml:"audio_bitrate"`
}

// Transcription selects and configures the speech-to-text provider.
type Transcription struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	MaxUploadMB    int    `toml:"max_upload_mb"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// WhisperX applies only when Transcription.Provider is "whisperx".
type WhisperX struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
}

// FFmpeg names the external media binaries.
type FFmpeg struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	YTDLPBinary   string `toml:"ytdlp_binary"`
}

// Validation bounds what counts as a usable output file.
type Validation struct {
	MinOutputBytes          int64   `toml:"min_output_bytes"`
	StabilityTimeoutSeconds int     `toml:"stability_timeout_seconds"`
	StabilityIntervalMillis int     `toml:"stability_interval_ms"`
	DurationDriftSeconds    float64 `toml:"duration_drift_seconds"`
}

// Workflow tunes the daemon's job runner.
type Workflow struct {
	Concurrency       int `toml:"concurrency"`
	QueuePollInterval int `toml:"queue_poll_interval"`
	StaleWorkHours    int `toml:"stale_work_hours"`
}

// Notifications configures ntfy alerts for finished jobs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging picks the log encoding (console or json) and minimum level.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the decoded config.toml. Each field maps to one [section].
type Config struct {
	Paths         Paths         `toml:"paths"`
	Censor        Censor        `toml:"censor"`
	Transcription Transcription `toml:"transcription"`
	WhisperX      WhisperX      `toml:"whisperx"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Validation    Validation    `toml:"validation"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}
