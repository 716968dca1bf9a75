package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"bleep/internal/acquire"
	"bleep/internal/api"
	"bleep/internal/jobs"
	"bleep/internal/logging"
	"bleep/internal/services"
)

const maxRequestBody = 64 << 10

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := jobs.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value), services.KindValidation)
			return
		}
		statuses = append(statuses, status)
	}
	list, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(list)})
}

func (s *apiServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), services.KindValidation)
		return
	}
	source, err := normalizeSource(req.Source)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), services.KindValidation)
		return
	}

	job, err := s.daemon.workflow.Submit(r.Context(), jobs.NewJob{
		Source:     source,
		Tone:       req.Tone,
		OutputName: strings.TrimSpace(req.OutputName),
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("job submitted via api",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", source),
		logging.String(logging.FieldEventType, "api_job_submitted"),
	)
	s.writeJSON(w, http.StatusAccepted, api.JobResponse{Job: api.FromJob(job)})
}

// normalizeSource accepts http(s) URLs as-is and resolves local paths,
// rejecting files the pipeline cannot read.
func normalizeSource(raw string) (string, error) {
	source := strings.TrimSpace(raw)
	if source == "" {
		return "", errors.New("source is required")
	}
	if acquire.IsRemote(source) {
		return source, nil
	}
	if strings.Contains(source, "://") {
		return "", fmt.Errorf("unsupported source scheme in %q", source)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("source file %s not found", abs)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("source %s is not a regular file", abs)
	}
	if !acquire.IsVideoFile(abs) {
		return "", fmt.Errorf("unsupported file extension %q", filepath.Ext(abs))
	}
	return abs, nil
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Has("purge") {
		s.removeJob(w, r, job)
		return
	}
	if job.Status.Terminal() {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("job already %s", job.Status), "")
		return
	}
	canceled, err := s.daemon.workflow.Cancel(r.Context(), job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return
	}
	if !canceled {
		s.writeError(w, http.StatusConflict, "job is no longer cancelable", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeJob deletes the job record. Running jobs must be canceled first.
func (s *apiServer) removeJob(w http.ResponseWriter, r *http.Request, job *jobs.Job) {
	if job.Status == jobs.StatusProcessing {
		s.writeError(w, http.StatusConflict, "job is processing; cancel it before removing", "")
		return
	}
	removed, err := s.daemon.workflow.Remove(r.Context(), job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return
	}
	if !removed {
		s.writeError(w, http.StatusConflict, "job could not be removed", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	n, err := s.daemon.workflow.Retry(r.Context(), job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return
	}
	if n == 0 {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("job is %s; only failed or canceled jobs can be retried", job.Status), "")
		return
	}
	updated, err := s.daemon.store.Get(r.Context(), job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(updated)})
}

func (s *apiServer) handleClearJobs(w http.ResponseWriter, r *http.Request) {
	n, err := s.daemon.workflow.ClearFinished(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: n})
}

func (s *apiServer) lookupJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	job, err := s.daemon.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found", "")
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.KindInternal)
		return nil, false
	}
	return job, true
}
