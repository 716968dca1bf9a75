package transcript

import (
	"fmt"
	"log/slog"
	"time"

	"bleep/internal/config"
	"bleep/internal/media/ffmpeg"
	"bleep/internal/services"
)

// New returns the transcriber selected by transcription.provider.
func New(cfg *config.Config, runner ffmpeg.Runner, prober Prober, logger *slog.Logger) (Transcriber, error) {
	switch cfg.Transcription.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAI(OpenAIConfig{
			APIKey:         cfg.Transcription.APIKey,
			BaseURL:        cfg.Transcription.BaseURL,
			Model:          cfg.Transcription.Model,
			Language:       cfg.Transcription.Language,
			MaxUploadBytes: int64(cfg.Transcription.MaxUploadMB) * 1024 * 1024,
			Timeout:        time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
			FFmpegBinary:   cfg.FFmpegBinary(),
		}, runner, prober, logger), nil
	case config.ProviderWhisperX:
		return NewWhisperX(WhisperXConfig{
			Model:       cfg.WhisperX.Model,
			CUDAEnabled: cfg.WhisperX.CUDAEnabled,
			VADMethod:   cfg.WhisperX.VADMethod,
			HFToken:     cfg.WhisperX.HFToken,
			Language:    cfg.Transcription.Language,
		}, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "select provider",
			fmt.Sprintf("unsupported provider %q", cfg.Transcription.Provider), nil)
	}
}
