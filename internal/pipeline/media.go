package pipeline

import (
	"fmt"
	"math"

	"bleep/internal/media/ffprobe"
	"bleep/internal/pcm"
)

func extractArgs(input, output string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", input,
		"-vn", "-map", "0:a:0",
		"-ac", "1", "-ar", fmt.Sprint(pcm.SampleRate),
		"-c:a", "pcm_s16le",
		output,
	}
}

// combinePlan decides how the original video and censored audio are muxed.
type combinePlan struct {
	Video         ffprobe.Stream
	VideoDuration float64
	AudioDuration float64
	// CopyAudio is set when the censored track is already AAC.
	CopyAudio    bool
	AudioBitrate string
}

// copyVideo reports whether the video stream can be stream-copied into MP4
// without a re-encode.
func (c combinePlan) copyVideo() bool {
	return c.Video.IsCodec("h264")
}

// duration is the shorter of the two known durations, or 0 when either is
// unknown.
func (c combinePlan) duration() float64 {
	if c.VideoDuration > 0 && c.AudioDuration > 0 {
		return math.Min(c.VideoDuration, c.AudioDuration)
	}
	return 0
}

func (c combinePlan) args(video, audio, output string) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
	}
	if c.copyVideo() {
		args = append(args, "-c:v", "copy", "-tag:v", "avc1")
	} else {
		fps := c.Video.FrameRate()
		if fps <= 0 {
			fps = 30
		}
		args = append(args,
			"-c:v", "libx264",
			"-profile:v", "high", "-level", "4.0",
			"-preset", "medium", "-crf", "23",
			"-g", fmt.Sprint(int(math.Round(2*fps))),
			"-keyint_min", fmt.Sprint(int(math.Round(fps))),
			"-sc_threshold", "0",
			"-pix_fmt", "yuv420p",
			"-avoid_negative_ts", "make_zero",
			"-fflags", "+genpts",
			"-fps_mode", "cfr",
		)
	}
	if c.CopyAudio {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac", "-b:a", c.AudioBitrate)
	}
	if d := c.duration(); d > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d))
	} else {
		args = append(args, "-shortest")
	}
	return append(args, "-movflags", "+faststart", "-f", "mp4", output)
}

func remuxArgs(input, output string, h264 bool) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", input,
		"-map", "0", "-c", "copy",
	}
	if h264 {
		args = append(args, "-tag:v", "avc1")
	}
	return append(args, "-movflags", "+faststart", "-f", "mp4", output)
}
