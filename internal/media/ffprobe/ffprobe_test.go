package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", CodecName: "H264", AvgFrameRate: "30000/1001"},
			{CodecType: "audio", CodecName: "aac", SampleRate: "44100", Channels: 1},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "123.45", Size: "1000"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	video, ok := result.FirstVideo()
	if !ok || !video.IsCodec("h264") {
		t.Fatalf("unexpected first video: %+v", video)
	}
	if fps := video.FrameRate(); math.Abs(fps-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %v", fps)
	}
	audio, ok := result.FirstAudio()
	if !ok || audio.SampleRateHz() != 44100 {
		t.Fatalf("unexpected first audio: %+v", audio)
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{Streams: []Stream{
		{CodecType: "video", Duration: "9.5"},
		{CodecType: "audio", Duration: "10.25"},
	}}
	if got := result.DurationSeconds(); got != 10.25 {
		t.Fatalf("expected longest stream duration, got %v", got)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if _, ok := result.FirstAudio(); ok {
		t.Fatal("expected no audio stream")
	}
}

func TestFrameRateParsing(t *testing.T) {
	tests := []struct {
		avg, r string
		want   float64
	}{
		{"25/1", "", 25},
		{"0/0", "24/1", 24},
		{"", "60", 60},
		{"bad", "x/y", 0},
	}
	for _, tc := range tests {
		got := Stream{AvgFrameRate: tc.avg, RFrameRate: tc.r}.FrameRate()
		if got != tc.want {
			t.Fatalf("FrameRate(%q,%q) = %v, want %v", tc.avg, tc.r, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	data := []byte(`{"streams":[{"index":0,"codec_type":"audio","codec_name":"aac","sample_rate":"44100","channels":1}],"format":{"duration":"3.0"}}`)
	result, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.AudioStreamCount() != 1 || result.DurationSeconds() != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := Parse([]byte("{")); err == nil {
		t.Fatal("expected parse error")
	}
}
