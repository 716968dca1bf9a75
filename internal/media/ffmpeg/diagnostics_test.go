package ffmpeg

import (
	"errors"
	"math"
	"strings"
	"testing"

	"bleep/internal/services"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		chunk string
		want  float64
		ok    bool
	}{
		{"frame=  120 fps= 30 q=28.0 size=    512kB time=00:00:04.00 bitrate=1048.6kbits/s", 4, true},
		{"size=N/A time=01:02:03.50 bitrate=N/A speed=2x", 3723.5, true},
		{"time=12.25 speed=1x", 12.25, true},
		{"time=N/A bitrate=N/A", 0, false},
		{"Stream mapping:", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseProgress(tc.chunk)
		if ok != tc.ok || math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ParseProgress(%q) = %v,%v want %v,%v", tc.chunk, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDuration(t *testing.T) {
	diag := "Input #0, wav, from 'in.wav':\n  Duration: 00:01:30.25, bitrate: 705 kb/s\nOutput #0\n  Duration: 00:00:01.00\n"
	got, ok := ParseDuration(diag)
	if !ok || math.Abs(got-90.25) > 1e-9 {
		t.Fatalf("ParseDuration = %v,%v", got, ok)
	}
	if _, ok := ParseDuration("Duration: N/A"); ok {
		t.Fatal("expected N/A duration to be rejected")
	}
}

func TestCheckClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantErr string
	}{
		{"clean", Result{Diagnostics: "Stream #0:0: Audio: aac"}, ""},
		{"exit code", Result{ExitCode: 1, Diagnostics: "line one\nNo such file"}, "exit code 1"},
		{"moov", Result{Diagnostics: "[mov,mp4] moov atom not found"}, "moov atom not found"},
		{"dts", Result{Diagnostics: "Application provided invalid, Non-monotonous DTS"}, "Non-monotonous DTS"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Check("combine", tc.result)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, services.ErrEncoding) {
				t.Fatalf("expected encoding marker, got %v", err)
			}
		})
	}
}

func TestTail(t *testing.T) {
	diag := "a\n\nb\nc\nd\n"
	if got := Tail(diag, 2); got != "c | d" {
		t.Fatalf("Tail = %q", got)
	}
	if got := Tail("", 3); got != "" {
		t.Fatalf("Tail(empty) = %q", got)
	}
}

func TestProgressRange(t *testing.T) {
	r := ProgressRange{From: 85, To: 94, Total: 100}
	tests := []struct {
		elapsed float64
		want    float64
	}{
		{0, 85},
		{50, 89.5},
		{100, 94},
		{250, 94},
	}
	for _, tc := range tests {
		if got := r.Percent(tc.elapsed); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Percent(%v) = %v want %v", tc.elapsed, got, tc.want)
		}
	}
	if got := (ProgressRange{From: 85, To: 94}).Percent(10); got != 85 {
		t.Fatalf("unknown total should report From, got %v", got)
	}
}
