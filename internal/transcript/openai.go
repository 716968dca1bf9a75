package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"bleep/internal/fallback"
	"bleep/internal/fileutil"
	"bleep/internal/logging"
	"bleep/internal/media/ffmpeg"
)

// OpenAIConfig configures the Whisper API transcriber.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	// MaxUploadBytes is the upload limit; larger audio is recompressed.
	MaxUploadBytes int64
	Timeout        time.Duration
	FFmpegBinary   string
}

// DefaultMaxUploadBytes matches the Whisper API upload limit.
const DefaultMaxUploadBytes = 25 * 1024 * 1024

// ErrTooLarge reports audio that exceeds the upload limit.
var ErrTooLarge = errors.New("audio exceeds upload limit")

type audioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAI transcribes through the Whisper API with word-level timestamps.
type OpenAI struct {
	cfg    OpenAIConfig
	client audioClient
	runner ffmpeg.Runner
	prober Prober
	logger *slog.Logger
}

// NewOpenAI builds a Whisper API transcriber. runner recompresses oversized
// audio; prober supplies durations when the response carries none.
func NewOpenAI(cfg OpenAIConfig, runner ffmpeg.Runner, prober Prober, logger *slog.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	return &OpenAI{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		runner: runner,
		prober: prober,
		logger: logging.NewComponentLogger(logger, "transcript"),
	}
}

// Transcribe uploads audioPath, recompressing it first when it exceeds the
// upload limit.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) ([]Token, error) {
	logger := logging.WithContext(ctx, o.logger)

	upload, err := fallback.Chain(ctx, o.uploadStrategies(audioPath)...)
	if err != nil {
		return nil, wrap("prepare upload", "", err)
	}
	if upload != audioPath {
		defer func() {
			if err := fileutil.RemoveIfExists(upload); err != nil {
				logger.Warn("remove compressed upload", logging.Error(err))
			}
		}()
	}

	callCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.client.CreateTranscription(callCtx, openai.AudioRequest{
		Model:    o.cfg.Model,
		FilePath: upload,
		Language: o.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, wrap("whisper api", "", ctx.Err())
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, wrap("whisper api", fmt.Sprintf("timed out after %s", o.cfg.Timeout), nil)
		}
		return nil, wrap("whisper api", apiHint(err), err)
	}

	duration := resp.Duration
	if duration <= 0 && len(resp.Words) == 0 && len(resp.Segments) == 0 {
		duration = o.probeDuration(ctx, audioPath)
	}
	tokens := tokensFromResponse(resp, duration)
	logger.Info("transcription complete",
		logging.Int("tokens", len(tokens)),
		logging.Int("words", len(resp.Words)),
		logging.Int("segments", len(resp.Segments)),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "transcription_complete"),
	)
	if len(tokens) == 0 {
		return nil, wrap("whisper api", "", ErrNoSpeech)
	}
	return tokens, nil
}

func (o *OpenAI) uploadStrategies(audioPath string) []fallback.Strategy[string] {
	return []fallback.Strategy[string]{
		{Name: "original", Run: func(context.Context) (string, error) {
			if err := o.checkSize(audioPath); err != nil {
				return "", err
			}
			return audioPath, nil
		}},
		o.compressStrategy(audioPath, 16000),
		o.compressStrategy(audioPath, 8000),
	}
}

func (o *OpenAI) compressStrategy(audioPath string, rate int) fallback.Strategy[string] {
	name := fmt.Sprintf("%dhz mono", rate)
	return fallback.Strategy[string]{Name: name, Run: func(ctx context.Context) (string, error) {
		base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
		dst := filepath.Join(filepath.Dir(audioPath), fmt.Sprintf("%s_%dhz.wav", base, rate))
		_, err := o.runner.Run(ctx, ffmpeg.Invocation{
			Binary: o.cfg.FFmpegBinary,
			Args: []string{
				"-hide_banner", "-nostdin", "-y",
				"-i", audioPath,
				"-vn", "-ac", "1", "-ar", fmt.Sprint(rate),
				"-c:a", "pcm_s16le",
				dst,
			},
			Label: "compress audio " + name,
		})
		if err != nil {
			_ = fileutil.RemoveIfExists(dst)
			return "", err
		}
		if err := o.checkSize(dst); err != nil {
			_ = fileutil.RemoveIfExists(dst)
			return "", err
		}
		o.logger.Info("audio recompressed for upload",
			logging.String("strategy", name),
			logging.String(logging.FieldEventType, "upload_compressed"),
		)
		return dst, nil
	}}
}

func (o *OpenAI) checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > o.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: %.2f MB > %.2f MB", ErrTooLarge, megabytes(info.Size()), megabytes(o.cfg.MaxUploadBytes))
	}
	return nil
}

func (o *OpenAI) probeDuration(ctx context.Context, path string) float64 {
	if o.prober == nil {
		return 0
	}
	probe, err := o.prober.Probe(ctx, path)
	if err != nil {
		o.logger.Warn("probe audio duration", logging.Error(err))
		return 0
	}
	return probe.DurationSeconds()
}

// tokensFromResponse prefers word timings, then segments, and finally spreads
// the plain text evenly across duration.
func tokensFromResponse(resp openai.AudioResponse, duration float64) []Token {
	if len(resp.Words) > 0 {
		tokens := make([]Token, 0, len(resp.Words))
		for _, w := range resp.Words {
			tokens = append(tokens, Token{Text: w.Word, Start: w.Start, End: w.End})
		}
		return Clean(tokens)
	}
	if len(resp.Segments) > 0 {
		tokens := make([]Token, 0, len(resp.Segments))
		for _, s := range resp.Segments {
			tokens = append(tokens, Token{Text: s.Text, Start: s.Start, End: s.End})
		}
		return Clean(tokens)
	}
	return EvenlySpaced(resp.Text, duration)
}

// EvenlySpaced splits text on whitespace and assigns each word an equal share
// of duration. It returns nil when duration is unknown.
func EvenlySpaced(text string, duration float64) []Token {
	words := strings.Fields(text)
	if len(words) == 0 || duration <= 0 {
		return nil
	}
	step := duration / float64(len(words))
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Token{Text: w, Start: float64(i) * step, End: float64(i+1) * step}
	}
	return tokens
}

func apiHint(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "check transcription.api_key"
		case http.StatusRequestEntityTooLarge:
			return "upload rejected as too large"
		case http.StatusTooManyRequests:
			return "rate limited"
		}
	}
	return ""
}

func megabytes(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
