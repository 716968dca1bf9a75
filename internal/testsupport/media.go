package testsupport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"bleep/internal/media/ffmpeg"
	"bleep/internal/media/ffprobe"
	"bleep/internal/services"
)

// FakeMedia emulates ffmpeg and ffprobe for tests. It implements both
// ffmpeg.Runner and the Probe method used by the pipeline and audio editor.
type FakeMedia struct {
	mu sync.Mutex

	// DecodedPCM is written to stdout for decode-to-PCM invocations.
	DecodedPCM []byte
	// DecodeDuration, when positive, is reported as a Duration: header.
	DecodeDuration float64
	// OutputSize is the size of container files the fake writes; default 200 KiB.
	OutputSize int64
	// Probes maps file extensions (".mp4") or exact paths to probe results.
	Probes map[string]ffprobe.Result
	// FailLabel makes invocations with this label fail with the given diagnostics.
	FailLabel       string
	FailDiagnostics string
	// OnRun, when set, is invoked before every invocation is emulated.
	OnRun func(inv ffmpeg.Invocation)

	calls []ffmpeg.Invocation
	stdin [][]byte
}

// Run emulates an ffmpeg invocation.
func (f *FakeMedia) Run(ctx context.Context, inv ffmpeg.Invocation) (ffmpeg.Result, error) {
	if err := ctx.Err(); err != nil {
		return ffmpeg.Result{}, services.Canceled(inv.Label, err)
	}
	if f.OnRun != nil {
		f.OnRun(inv)
	}
	var input []byte
	if inv.Stdin != nil {
		data, err := io.ReadAll(inv.Stdin)
		if err != nil {
			return ffmpeg.Result{}, err
		}
		input = data
	}

	f.mu.Lock()
	f.calls = append(f.calls, inv)
	if input != nil {
		f.stdin = append(f.stdin, input)
	}
	f.mu.Unlock()

	if f.FailLabel != "" && inv.Label == f.FailLabel {
		result := ffmpeg.Result{ExitCode: 1, Diagnostics: f.FailDiagnostics}
		return result, inv.Check(result)
	}

	var diagnostics string
	if f.DecodeDuration > 0 {
		diagnostics = fmt.Sprintf("Input #0\n  Duration: %s, start: 0.000000\n", clock(f.DecodeDuration))
	}
	if inv.Progress != nil {
		inv.Progress(f.DecodeDuration / 2)
		inv.Progress(f.DecodeDuration)
	}

	target := ""
	if n := len(inv.Args); n > 0 {
		target = inv.Args[n-1]
	}
	switch {
	case inv.Stdout != nil && slices.Contains(inv.Args, "s16le"):
		if _, err := inv.Stdout.Write(f.DecodedPCM); err != nil {
			return ffmpeg.Result{}, err
		}
	case target == "-" || strings.HasPrefix(target, "pipe:"):
	case target != "":
		if err := f.writeOutput(target); err != nil {
			return ffmpeg.Result{}, err
		}
	}
	return ffmpeg.Result{Diagnostics: diagnostics}, nil
}

func (f *FakeMedia) writeOutput(path string) error {
	size := f.OutputSize
	if size <= 0 {
		size = 200 * 1024
	}
	var header []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4a", ".mov":
		header = MP4Header
	}
	return writePattern(path, header, size)
}

// Probe returns the configured probe result for path.
func (f *FakeMedia) Probe(_ context.Context, path string) (ffprobe.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return ffprobe.Result{}, fmt.Errorf("ffprobe inspect %s: %w", path, err)
	}
	if result, ok := f.Probes[path]; ok {
		return result, nil
	}
	if result, ok := f.Probes[strings.ToLower(filepath.Ext(path))]; ok {
		return result, nil
	}
	return ffprobe.Result{}, fmt.Errorf("ffprobe inspect %s: no fake result", path)
}

// Calls returns a snapshot of recorded invocations.
func (f *FakeMedia) Calls() []ffmpeg.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Labels returns the labels of recorded invocations in order.
func (f *FakeMedia) Labels() []string {
	calls := f.Calls()
	labels := make([]string, len(calls))
	for i, c := range calls {
		labels[i] = c.Label
	}
	return labels
}

// Stdin returns the payloads streamed to invocations that had stdin.
func (f *FakeMedia) Stdin() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.stdin)
}

// CallByLabel returns the first invocation with the given label.
func (f *FakeMedia) CallByLabel(label string) (ffmpeg.Invocation, bool) {
	for _, c := range f.Calls() {
		if c.Label == label {
			return c, true
		}
	}
	return ffmpeg.Invocation{}, false
}

// VideoProbe builds a probe result with one video and one audio stream.
func VideoProbe(videoCodec string, duration float64) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", CodecName: videoCodec, Width: 1280, Height: 720, AvgFrameRate: "30/1"},
			{Index: 1, CodecType: "audio", CodecName: "aac", SampleRate: "44100", Channels: 2},
		},
		Format: ffprobe.Format{Duration: fmt.Sprintf("%.3f", duration), FormatName: "mov,mp4,m4a,3gp,3g2,mj2"},
	}
}

// AudioProbe builds a probe result for a single mono AAC stream.
func AudioProbe(duration float64) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{Index: 0, CodecType: "audio", CodecName: "aac", SampleRate: "44100", Channels: 1, Duration: fmt.Sprintf("%.3f", duration)}},
		Format:  ffprobe.Format{Duration: fmt.Sprintf("%.3f", duration)},
	}
}

func clock(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, s)
}

// RunnerFunc adapts a function to ffmpeg.Runner.
type RunnerFunc func(ctx context.Context, inv ffmpeg.Invocation) (ffmpeg.Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, inv ffmpeg.Invocation) (ffmpeg.Result, error) {
	return f(ctx, inv)
}
