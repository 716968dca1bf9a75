package logging

import "strings"

// ProgressSampler thins a stream of progress updates down to one line per
// stage transition or per bucketSize percent advanced.
type ProgressSampler struct {
	bucketSize float64
	stage      string
	bucket     int
}

// NewProgressSampler returns a sampler with buckets of bucketSize percent;
// non-positive sizes fall back to 10.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	s := &ProgressSampler{bucketSize: bucketSize}
	s.Reset()
	return s
}

// ShouldLog reports whether an update is worth printing. Percent below zero
// means the stage has no measurable progress. A nil sampler passes everything.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	changed := false
	if st := strings.TrimSpace(stage); st != "" && st != s.stage {
		s.stage, s.bucket = st, -1
		changed = true
	}
	if percent < 0 {
		return changed
	}
	if b := int(min(percent, 100) / s.bucketSize); b > s.bucket {
		s.bucket = b
		changed = true
	}
	return changed
}

// Reset forgets the last stage and bucket.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.stage, s.bucket = "", -1
	}
}
