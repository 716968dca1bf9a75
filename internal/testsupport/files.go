package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if err := writePattern(path, nil, size); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteMP4 writes a file of the given size that starts with an MP4 ftyp box
// header, enough to satisfy container signature checks.
func WriteMP4(t testing.TB, path string, size int64) {
	t.Helper()
	if err := writePattern(path, MP4Header, size); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MP4Header is the leading box of a typical MP4 file.
var MP4Header = []byte("\x00\x00\x00\x20ftypisom\x00\x00\x02\x00isomiso2avc1mp41")

func writePattern(path string, header []byte, size int64) error {
	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(header) > 0 {
		n := min(int64(len(header)), size)
		if _, err := f.Write(header[:n]); err != nil {
			return err
		}
		size -= n
	}
	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}
	for size > 0 {
		n := min(int64(chunkSize), size)
		if _, err := f.Write(buf[:n]); err != nil {
			return err
		}
		size -= n
	}
	return f.Close()
}
