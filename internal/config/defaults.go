package config

const (
	defaultWorkDir                 = "~/.local/share/bleep/work"
	defaultOutputDir               = "~/.local/share/bleep/output"
	defaultLogDir                  = "~/.local/share/bleep/logs"
	defaultAPIBind                 = "127.0.0.1:3001"
	defaultToneFrequencyHz         = 800
	defaultAudioBitrate            = "192k"
	defaultProvider                = ProviderOpenAI
	defaultTranscriptionModel      = "whisper-1"
	defaultMaxUploadMB             = 25
	defaultTranscriptionTimeout    = 600
	defaultWhisperXModel           = "large-v3"
	defaultWhisperXVADMethod       = "silero"
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultYTDLPBinary             = "yt-dlp"
	defaultMinOutputBytes          = 100 * 1024
	defaultStabilityTimeoutSeconds = 5
	defaultStabilityIntervalMillis = 200
	defaultDurationDriftSeconds    = 2.0
	defaultConcurrency             = 1
	defaultQueuePollInterval       = 5
	defaultStaleWorkHours          = 24
	defaultNotifyTimeoutSeconds    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Transcription provider identifiers.
const (
	ProviderOpenAI   = "openai"
	ProviderWhisperX = "whisperx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Censor: Censor{
			ToneEnabled:     true,
			ToneFrequencyHz: defaultToneFrequencyHz,
			AudioBitrate:    defaultAudioBitrate,
		},
		Transcription: Transcription{
			Provider:       defaultProvider,
			Model:          defaultTranscriptionModel,
			MaxUploadMB:    defaultMaxUploadMB,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		WhisperX: WhisperX{
			Model:     defaultWhisperXModel,
			VADMethod: defaultWhisperXVADMethod,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			YTDLPBinary:   defaultYTDLPBinary,
		},
		Validation: Validation{
			MinOutputBytes:          defaultMinOutputBytes,
			StabilityTimeoutSeconds: defaultStabilityTimeoutSeconds,
			StabilityIntervalMillis: defaultStabilityIntervalMillis,
			DurationDriftSeconds:    defaultDurationDriftSeconds,
		},
		Workflow: Workflow{
			Concurrency:       defaultConcurrency,
			QueuePollInterval: defaultQueuePollInterval,
			StaleWorkHours:    defaultStaleWorkHours,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
