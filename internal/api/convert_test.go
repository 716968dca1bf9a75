package api

import (
	"testing"
	"time"

	"bleep/internal/jobs"
	"bleep/internal/progress"
	"bleep/internal/services"
	"bleep/internal/workflow"
)

func TestDownloadURLEscapesBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/out/clip_censored.mp4", "/api/video/clip_censored.mp4"},
		{"/out/my clip.mp4", "/api/video/my%20clip.mp4"},
	}
	for _, tc := range tests {
		if got := DownloadURL(tc.in); got != tc.want {
			t.Fatalf("DownloadURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFromJobHidesOutputUntilCompleted(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &jobs.Job{
		ID:              "abc",
		Source:          "/in/clip.mp4",
		Status:          jobs.StatusProcessing,
		OutputPath:      "/out/clip_censored.mp4",
		ProgressStage:   "transcribing",
		ProgressPercent: 30,
		CreatedAt:       created,
	}
	dto := FromJob(job)
	if dto.OutputPath != "" || dto.DownloadURL != "" {
		t.Fatalf("expected no output for processing job, got %+v", dto)
	}
	if dto.Progress.Stage != "transcribing" || dto.Progress.Percent != 30 {
		t.Fatalf("unexpected progress: %+v", dto.Progress)
	}
	if dto.CreatedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected created at: %q", dto.CreatedAt)
	}
	if dto.StartedAt != "" {
		t.Fatalf("expected empty started at, got %q", dto.StartedAt)
	}

	job.Status = jobs.StatusCompleted
	finished := created.Add(time.Minute)
	job.FinishedAt = &finished
	dto = FromJob(job)
	if dto.DownloadURL != "/api/video/clip_censored.mp4" {
		t.Fatalf("unexpected download url: %q", dto.DownloadURL)
	}
	if dto.FinishedAt != "2026-03-01T12:01:00.000Z" {
		t.Fatalf("unexpected finished at: %q", dto.FinishedAt)
	}
}

func TestFromEventCarriesErrorKind(t *testing.T) {
	detail := services.FailureDetail{Kind: services.KindCorruptOutput, Message: "bad"}
	dto := FromEvent(progress.Event{JobID: "j", Kind: progress.KindError, Stage: "validating", Error: &detail})
	if dto.ErrorKind != services.KindCorruptOutput || !dto.Terminal() {
		t.Fatalf("unexpected event: %+v", dto)
	}

	dto = FromEvent(progress.Event{JobID: "j", Kind: progress.KindComplete, Percent: 100, OutputPath: "/o/x.mp4"})
	if dto.DownloadURL != "/api/video/x.mp4" || !dto.Terminal() {
		t.Fatalf("unexpected complete event: %+v", dto)
	}
}

func TestFromStatusSummaryNeverReturnsNilActive(t *testing.T) {
	dto := FromStatusSummary(workflow.StatusSummary{Jobs: jobs.Summary{Total: 2, Failed: 1, Queued: 1}})
	if dto.Active == nil {
		t.Fatal("expected empty active slice")
	}
	if dto.Counts.Total != 2 || dto.Counts.Failed != 1 || dto.Counts.Queued != 1 {
		t.Fatalf("unexpected counts: %+v", dto.Counts)
	}
	if dto.LastJob != nil {
		t.Fatalf("expected no last job, got %+v", dto.LastJob)
	}
}
