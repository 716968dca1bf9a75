package config

import (
	"errors"
	"fmt"
	"strings"

	"bleep/internal/language"
)

// Validate reports the first setting that would stop the pipeline or
// daemon from working. Error messages name the offending TOML key.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateTranscription,
		c.validateWhisperX,
		c.validateCensor,
		c.validateWorkflow,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if _, err := language.Normalize(c.Transcription.Language); err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	switch c.Transcription.Provider {
	case ProviderOpenAI:
		if c.Transcription.APIKey == "" && c.Transcription.BaseURL == "" {
			where, err := DefaultConfigPath()
			if err != nil {
				where = defaultConfigLocation
			}
			return fmt.Errorf("transcription.api_key is required for the openai provider; set OPENAI_API_KEY or edit %s (create it with 'bleep config init')", where)
		}
	case ProviderWhisperX:
	default:
		return fmt.Errorf("transcription.provider: unsupported value %q (expected %q or %q)", c.Transcription.Provider, ProviderOpenAI, ProviderWhisperX)
	}
	return nil
}

func (c *Config) validateWhisperX() error {
	switch c.WhisperX.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("whisperx.vad_method: unsupported value %q", c.WhisperX.VADMethod)
	}
	if c.Transcription.Provider == ProviderWhisperX && c.WhisperX.VADMethod == "pyannote" && c.WhisperX.HFToken == "" {
		return errors.New("whisperx.hf_token must be set when whisperx.vad_method is pyannote")
	}
	return nil
}

func (c *Config) validateCensor() error {
	if c.Censor.ToneFrequencyHz >= 22050 {
		return errors.New("censor.tone_frequency_hz must be below the 22050 Hz Nyquist limit")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Concurrency > 8 {
		return errors.New("workflow.concurrency must be 8 or less")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if f := c.Logging.Format; f != "console" && f != "json" {
		return fmt.Errorf("logging.format: unsupported value %q", strings.TrimSpace(f))
	}
	return nil
}
