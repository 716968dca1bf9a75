// Package transcript turns extracted audio into timed word tokens.
//
// Two providers are available: the OpenAI Whisper API (or any compatible
// endpoint) and a local WhisperX run through uvx. Both return tokens in
// chronological order and wrap failures with services.ErrTranscription.
package transcript

import (
	"context"
	"errors"

	"bleep/internal/media/ffprobe"
	"bleep/internal/services"
)

const stageTranscription = "transcription"

// Transcriber produces ordered word tokens for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Token, error)
}

// Func adapts a function to the Transcriber interface.
type Func func(ctx context.Context, audioPath string) ([]Token, error)

// Transcribe calls f.
func (f Func) Transcribe(ctx context.Context, audioPath string) ([]Token, error) {
	return f(ctx, audioPath)
}

// Prober reports media metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// ErrNoSpeech reports a transcript without any usable tokens.
var ErrNoSpeech = errors.New("no speech detected")

func wrap(op, msg string, err error) error {
	if errors.Is(err, services.ErrCanceled) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.Canceled(stageTranscription, err)
	}
	return services.Wrap(services.ErrTranscription, stageTranscription, op, msg, err)
}
