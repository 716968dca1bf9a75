package pcm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bleep/internal/interval"
	"bleep/internal/logging"
	"bleep/internal/media/ffprobe"
	"bleep/internal/services"
	"bleep/internal/testsupport"
)

func newEditor(media *testsupport.FakeMedia) *Editor {
	return &Editor{Runner: media, Prober: media, FFmpegBinary: "ffmpeg", Logger: logging.NewNop()}
}

func writeSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "extracted.wav")
	testsupport.WriteFile(t, src, 4096)
	return src
}

func TestCensorEmptyIntervalsCopiesSource(t *testing.T) {
	media := &testsupport.FakeMedia{}
	src := writeSource(t)
	dst := filepath.Join(t.TempDir(), "censored.m4a")

	report, err := newEditor(media).Censor(context.Background(), src, dst, nil, EditOptions{Tone: true})
	if err != nil {
		t.Fatalf("Censor: %v", err)
	}
	if !report.Copied || report.Applied != 0 {
		t.Fatalf("expected copy report, got %+v", report)
	}
	if len(media.Calls()) != 0 {
		t.Fatalf("expected no ffmpeg invocations, got %v", media.Labels())
	}
	if report.OutputPath != strings.TrimSuffix(dst, ".m4a")+".wav" {
		t.Fatalf("expected copy to keep the source extension, got %q", report.OutputPath)
	}
	want, _ := os.ReadFile(src)
	got, _ := os.ReadFile(report.OutputPath)
	if !bytes.Equal(want, got) {
		t.Fatal("expected byte-identical copy")
	}
}

func TestCensorAllIntervalsDiscardedCopiesSource(t *testing.T) {
	media := &testsupport.FakeMedia{
		DecodedPCM:     make([]byte, BytesPerSecond*2),
		DecodeDuration: 2,
	}
	src := writeSource(t)
	dst := filepath.Join(t.TempDir(), "censored.m4a")

	raw := []interval.Interval{{Start: 5, End: 6, Label: "shit"}}
	report, err := newEditor(media).Censor(context.Background(), src, dst, raw, EditOptions{})
	if err != nil {
		t.Fatalf("Censor: %v", err)
	}
	if !report.Copied {
		t.Fatalf("expected copy path, got %+v", report)
	}
	if report.DecodedSeconds != 2 {
		t.Fatalf("expected decoded duration 2, got %v", report.DecodedSeconds)
	}
	if labels := media.Labels(); len(labels) != 1 || labels[0] != "decode audio" {
		t.Fatalf("expected only decode invocation, got %v", labels)
	}
}

func TestCensorAppliesToneAndEncodes(t *testing.T) {
	decoded := make([]byte, BytesPerSecond*3)
	media := &testsupport.FakeMedia{
		DecodedPCM:     decoded,
		DecodeDuration: 3,
		Probes:         map[string]ffprobe.Result{".m4a": testsupport.AudioProbe(3)},
	}
	src := writeSource(t)
	dst := filepath.Join(t.TempDir(), "censored.m4a")

	raw := []interval.Interval{{Start: 1.0, End: 1.3, Label: "fuck"}}
	report, err := newEditor(media).Censor(context.Background(), src, dst, raw, EditOptions{Tone: true})
	if err != nil {
		t.Fatalf("Censor: %v", err)
	}
	if report.Copied || report.Applied != 1 || report.OutputPath != dst {
		t.Fatalf("unexpected report: %+v", report)
	}
	want := []string{"decode audio", "encode audio", "verify censored audio"}
	labels := media.Labels()
	if len(labels) != len(want) {
		t.Fatalf("unexpected invocations: %v", labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("invocation %d: got %q want %q", i, labels[i], want[i])
		}
	}

	inputs := media.Stdin()
	if len(inputs) != 1 {
		t.Fatalf("expected one stdin payload, got %d", len(inputs))
	}
	edited := inputs[0]
	if len(edited) != len(decoded) {
		t.Fatalf("edited length %d, want %d", len(edited), len(decoded))
	}
	start, end := Range(interval.Interval{Start: 1.0, End: 1.3}, len(edited))
	if !bytes.Equal(edited[start:end], Tone((end-start)/BytesPerSample, DefaultToneHz)) {
		t.Fatal("expected tone inside censored range")
	}
	if !bytes.Equal(edited[:start], decoded[:start]) || !bytes.Equal(edited[end:], decoded[end:]) {
		t.Fatal("expected samples outside the range to be untouched")
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected encoded output: %v", err)
	}
}

func TestCensorFallsBackToBufferDuration(t *testing.T) {
	media := &testsupport.FakeMedia{
		DecodedPCM: make([]byte, BytesPerSecond),
		Probes:     map[string]ffprobe.Result{".m4a": testsupport.AudioProbe(1)},
	}
	src := writeSource(t)
	dst := filepath.Join(t.TempDir(), "censored.m4a")

	raw := []interval.Interval{{Start: 0.2, End: 0.4, Label: "damn"}}
	report, err := newEditor(media).Censor(context.Background(), src, dst, raw, EditOptions{})
	if err != nil {
		t.Fatalf("Censor: %v", err)
	}
	if report.DecodedSeconds != 1 {
		t.Fatalf("expected buffer-derived duration 1, got %v", report.DecodedSeconds)
	}
}

func TestCensorRejectsUnexpectedAudioFormat(t *testing.T) {
	probe := testsupport.AudioProbe(2)
	probe.Streams[0].Channels = 2
	media := &testsupport.FakeMedia{
		DecodedPCM:     make([]byte, BytesPerSecond*2),
		DecodeDuration: 2,
		Probes:         map[string]ffprobe.Result{".m4a": probe},
	}
	src := writeSource(t)
	dst := filepath.Join(t.TempDir(), "censored.m4a")

	raw := []interval.Interval{{Start: 0.5, End: 0.9, Label: "shit"}}
	_, err := newEditor(media).Censor(context.Background(), src, dst, raw, EditOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("expected invalid output removed, stat err=%v", statErr)
	}
}

func TestCensorEncodeFailure(t *testing.T) {
	media := &testsupport.FakeMedia{
		DecodedPCM:      make([]byte, BytesPerSecond*2),
		DecodeDuration:  2,
		FailLabel:       "encode audio",
		FailDiagnostics: "Conversion failed!",
	}
	src := writeSource(t)
	dst := filepath.Join(t.TempDir(), "censored.m4a")

	raw := []interval.Interval{{Start: 0.5, End: 0.9, Label: "shit"}}
	_, err := newEditor(media).Censor(context.Background(), src, dst, raw, EditOptions{})
	if !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
}

func TestCensorCanceled(t *testing.T) {
	media := &testsupport.FakeMedia{DecodedPCM: make([]byte, BytesPerSecond)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := writeSource(t)
	dst := filepath.Join(t.TempDir(), "censored.m4a")

	raw := []interval.Interval{{Start: 0.1, End: 0.5, Label: "shit"}}
	_, err := newEditor(media).Censor(ctx, src, dst, raw, EditOptions{})
	if services.Kind(err) != services.KindCanceled {
		t.Fatalf("expected canceled error, got %v", err)
	}
}
