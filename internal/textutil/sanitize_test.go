package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My: Video?", "My- Video"},
		{"a/b\\c", "a-b-c"},
		{"  spaced  ", "spaced"},
		{"..hidden..", "hidden"},
		{"tab\there", "tabhere"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello_world"},
		{"__x__", "x"},
		{"!!!", "unknown"},
		{"", "unknown"},
		{"a-B_9", "a-b_9"},
	}
	for _, tc := range tests {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestCensoredName(t *testing.T) {
	tests := []struct {
		source string
		id     string
		want   string
	}{
		{"/videos/My Clip.mov", "3f2a9c10-aaaa-bbbb", "My_Clip_censored_3f2a9c10.mp4"},
		{"/videos/.mp4", "abc", "video_censored_abc.mp4"},
		{"what?.webm", "ID", "what_censored_id.mp4"},
	}
	for _, tc := range tests {
		if got := CensoredName(tc.source, tc.id); got != tc.want {
			t.Errorf("CensoredName(%q, %q) = %q want %q", tc.source, tc.id, got, tc.want)
		}
	}

	long := strings.Repeat("é", 200) + ".mp4"
	got := CensoredName(long, "id")
	if !strings.HasSuffix(got, "_censored_id.mp4") {
		t.Fatalf("unexpected suffix: %q", got)
	}
	stem := strings.TrimSuffix(got, "_censored_id.mp4")
	if len(stem) > maxStemBytes || !strings.HasPrefix(stem, "é") {
		t.Fatalf("unexpected truncated stem %q (%d bytes)", stem, len(stem))
	}
}
