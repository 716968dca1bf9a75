package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"bleep/internal/logging"
)

// WhisperX tuning passed to every run.
const (
	WhisperXDefaultModel = "large-v3"
	whisperXCUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	whisperXPypiIndexURL = "https://pypi.org/simple"
	whisperXBatchSize    = "4"
	whisperXChunkSize    = "15"
	whisperXVADOnset     = "0.08"
	whisperXVADOffset    = "0.07"
	whisperXBeamSize     = "10"
	whisperXBestOf       = "10"
	whisperXTemperature  = "0.0"
	whisperXPatience     = "1.0"

	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"

	UVXCommand = "uvx"
)

// WhisperXConfig captures runtime settings for the local WhisperX provider.
type WhisperXConfig struct {
	Model       string
	CUDAEnabled bool
	VADMethod   string
	HFToken     string
	Language    string
	// Binary is the uvx executable; default "uvx".
	Binary string
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// WhisperX transcribes locally by running whisperx through uvx.
type WhisperX struct {
	cfg    WhisperXConfig
	run    CommandRunner
	logger *slog.Logger
}

// NewWhisperX creates a WhisperX transcriber.
func NewWhisperX(cfg WhisperXConfig, logger *slog.Logger) *WhisperX {
	w := &WhisperX{cfg: cfg, logger: logging.NewComponentLogger(logger, "transcript")}
	w.run = runCommand
	return w
}

// WithCommandRunner replaces the process runner.
func (w *WhisperX) WithCommandRunner(run CommandRunner) {
	if run != nil {
		w.run = run
	}
}

// Transcribe runs whisperx on audioPath and reads word timings from its JSON
// output, falling back to segment timings for segments without words.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) ([]Token, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, wrap("whisperx", "source path required", nil)
	}
	outputDir := filepath.Join(filepath.Dir(audioPath), "whisperx")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, wrap("whisperx", "ensure output dir", err)
	}
	defer func() { _ = os.RemoveAll(outputDir) }()

	start := time.Now()
	if err := w.run(ctx, w.binary(), w.buildArgs(audioPath, outputDir)...); err != nil {
		return nil, wrap("whisperx", "", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	segments, err := loadWhisperXSegments(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, wrap("whisperx", "read output", err)
	}
	tokens := tokensFromSegments(segments)
	logging.WithContext(ctx, w.logger).Info("transcription complete",
		logging.Int("tokens", len(tokens)),
		logging.Int("segments", len(segments)),
		logging.String("model", w.model()),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "transcription_complete"),
	)
	if len(tokens) == 0 {
		return nil, wrap("whisperx", "", ErrNoSpeech)
	}
	return tokens, nil
}

func (w *WhisperX) binary() string {
	if b := strings.TrimSpace(w.cfg.Binary); b != "" {
		return b
	}
	return UVXCommand
}

func (w *WhisperX) model() string {
	if w.cfg.Model != "" {
		return w.cfg.Model
	}
	return WhisperXDefaultModel
}

func (w *WhisperX) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", whisperXCUDAIndexURL, "--extra-index-url", whisperXPypiIndexURL)
	} else {
		args = append(args, "--index-url", whisperXPypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.model(),
		"--batch_size", whisperXBatchSize,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--chunk_size", whisperXChunkSize,
		"--vad_onset", whisperXVADOnset,
		"--vad_offset", whisperXVADOffset,
		"--beam_size", whisperXBeamSize,
		"--best_of", whisperXBestOf,
		"--temperature", whisperXTemperature,
		"--patience", whisperXPatience,
	)

	vad := w.cfg.VADMethod
	if vad == "" {
		vad = VADMethodSilero
	}
	args = append(args, "--vad_method", vad)
	if vad == VADMethodPyannote && w.cfg.HFToken != "" {
		args = append(args, "--hf_token", w.cfg.HFToken)
	}
	if lang := strings.TrimSpace(w.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", "float32")
	}
	return args
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// Torch 2.6 defaults torch.load to weights_only, which breaks the
	// pyannote checkpoints WhisperX loads.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", name, err, tailLines(string(output), 5))
	}
	return nil
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// whisperXWord keeps timings optional: alignment leaves numerals and symbols
// without them.
type whisperXWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

type whisperXSegment struct {
	Text  string         `json:"text"`
	Start float64        `json:"start"`
	End   float64        `json:"end"`
	Words []whisperXWord `json:"words"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
}

func loadWhisperXSegments(path string) ([]whisperXSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// tokensFromSegments emits one token per timed word. Untimed words borrow the
// previous word's end (or the segment start) for both bounds, and segments
// with no timed words are emitted whole.
func tokensFromSegments(segments []whisperXSegment) []Token {
	var tokens []Token
	for _, seg := range segments {
		timed := 0
		for _, w := range seg.Words {
			if w.Start != nil && w.End != nil {
				timed++
			}
		}
		if timed == 0 {
			tokens = append(tokens, Token{Text: seg.Text, Start: seg.Start, End: seg.End})
			continue
		}
		cursor := seg.Start
		for _, w := range seg.Words {
			if w.Start != nil && w.End != nil {
				tokens = append(tokens, Token{Text: w.Word, Start: *w.Start, End: *w.End})
				cursor = *w.End
				continue
			}
			tokens = append(tokens, Token{Text: w.Word, Start: cursor, End: cursor})
		}
	}
	return Clean(tokens)
}
