package daemon

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"bleep/internal/logging"
	"bleep/internal/pipeline"
	"bleep/internal/services"
)

// handleVideo serves a finished output from the output directory with Range
// support. Files smaller than the validation threshold are refused as
// corrupt rather than streamed.
func (s *apiServer) handleVideo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		s.writeError(w, http.StatusNotFound, "video not found", "")
		return
	}
	path := filepath.Join(s.cfg.Paths.OutputDir, name)

	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "video not found", "")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		s.writeError(w, http.StatusNotFound, "video not found", "")
		return
	}

	minBytes := s.cfg.Validation.MinOutputBytes
	if minBytes <= 0 {
		minBytes = pipeline.DefaultMinOutputBytes
	}
	if info.Size() < minBytes {
		logging.WarnWithContext(s.logger, "refusing to serve undersized video", "video_corrupt",
			logging.String("path", path),
			logging.Int64("size_bytes", info.Size()),
			logging.Int64("min_bytes", minBytes),
			logging.String(logging.FieldErrorHint, "re-run the job; the output failed validation"),
			logging.String(logging.FieldImpact, "download refused"),
		)
		s.writeError(w, http.StatusInternalServerError, "video file appears to be corrupted", services.KindCorruptOutput)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
