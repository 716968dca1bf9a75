package pcm

import (
	"encoding/binary"
	"math"

	"bleep/internal/interval"
)

const (
	// SampleRate is the decode rate used for editing.
	SampleRate = 44100
	// BytesPerSample is the size of one mono s16le sample.
	BytesPerSample = 2
	// BytesPerSecond is the byte rate of the edit buffer.
	BytesPerSecond = SampleRate * BytesPerSample
	// DefaultToneHz is the censor tone frequency.
	DefaultToneHz = 800.0
)

// EditOptions selects the replacement for censored spans.
type EditOptions struct {
	Tone        bool
	FrequencyHz float64
}

func (o EditOptions) frequency() float64 {
	if o.FrequencyHz > 0 {
		return o.FrequencyHz
	}
	return DefaultToneHz
}

// ByteOffset converts seconds to a sample-aligned byte offset.
func ByteOffset(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int(math.Floor(seconds*SampleRate)) * BytesPerSample
}

// DurationOf returns the playback length of a buffer in seconds.
func DurationOf(buf []byte) float64 {
	return float64(len(buf)/BytesPerSample) / SampleRate
}

// Range returns the clamped, sample-aligned byte range [start, end) of iv
// within a buffer of length n.
func Range(iv interval.Interval, n int) (int, int) {
	limit := n - n%BytesPerSample
	start := min(max(ByteOffset(iv.Start), 0), limit)
	end := min(max(ByteOffset(iv.End), 0), limit)
	return start, end
}

// Apply returns a copy of buf with every interval replaced by tone or
// silence. The result always has the same length as buf.
func Apply(buf []byte, intervals []interval.Interval, opts EditOptions) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)
	for _, iv := range intervals {
		start, end := Range(iv, len(out))
		if end <= start {
			continue
		}
		region := out[start:end]
		if opts.Tone {
			writeTone(region, opts.frequency())
		} else {
			clear(region)
		}
	}
	return out
}

// Tone synthesizes samples of a full-scale sine at freq Hz.
func Tone(samples int, freq float64) []byte {
	if samples <= 0 {
		return nil
	}
	buf := make([]byte, samples*BytesPerSample)
	writeTone(buf, freq)
	return buf
}

// writeTone fills dst with whole samples and zero-fills any trailing byte.
func writeTone(dst []byte, freq float64) {
	samples := len(dst) / BytesPerSample
	step := 2 * math.Pi * freq / SampleRate
	for i := 0; i < samples; i++ {
		v := int16(math.Round(math.Sin(step*float64(i)) * math.MaxInt16))
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(v))
	}
	clear(dst[samples*BytesPerSample:])
}
