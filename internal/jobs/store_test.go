package jobs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bleep/internal/jobs"
	"bleep/internal/testsupport"
)

func TestEnqueueAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	silence := false

	job, err := store.Enqueue(ctx, jobs.NewJob{Source: " /videos/a.mp4 ", Tone: &silence, OutputName: "clean"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.ID == "" || job.Status != jobs.StatusQueued {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Source != "/videos/a.mp4" {
		t.Fatalf("expected trimmed source, got %q", job.Source)
	}
	if job.Tone == nil || *job.Tone {
		t.Fatalf("expected tone override false, got %v", job.Tone)
	}
	if job.OutputName != "clean" || job.CreatedAt.IsZero() {
		t.Fatalf("unexpected fields: %+v", job)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Enqueue(ctx, jobs.NewJob{Source: "  "}); err == nil {
		t.Fatal("expected empty source to be rejected")
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, err := first.Enqueue(context.Background(), jobs.NewJob{Source: "/v.mp4"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	_ = first.Close()

	second := testsupport.MustOpenStore(t, cfg)
	if second.Path() != filepath.Join(cfg.Paths.LogDir, "jobs.db") {
		t.Fatalf("unexpected path %q", second.Path())
	}
	if _, err := second.Get(context.Background(), job.ID); err != nil {
		t.Fatalf("expected job to survive reopen: %v", err)
	}
}

func TestClaimNextIsFIFOAndExclusive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, jobs.NewJob{Source: "/a.mp4"})
	time.Sleep(2 * time.Millisecond)
	b, _ := store.Enqueue(ctx, jobs.NewJob{Source: "/b.mp4"})

	first, err := store.ClaimNext(ctx)
	if err != nil || first == nil || first.ID != a.ID {
		t.Fatalf("expected %s first, got %+v err=%v", a.ID, first, err)
	}
	if first.Status != jobs.StatusProcessing || first.StartedAt == nil || first.LastHeartbeat == nil {
		t.Fatalf("expected processing with timestamps, got %+v", first)
	}
	second, err := store.ClaimNext(ctx)
	if err != nil || second == nil || second.ID != b.ID {
		t.Fatalf("expected %s second, got %+v err=%v", b.ID, second, err)
	}
	none, err := store.ClaimNext(ctx)
	if err != nil || none != nil {
		t.Fatalf("expected empty queue, got %+v err=%v", none, err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	ok, _ := store.Enqueue(ctx, jobs.NewJob{Source: "/ok.mp4"})
	bad, _ := store.Enqueue(ctx, jobs.NewJob{Source: "/bad.mp4"})
	for range 2 {
		if _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext: %v", err)
		}
	}

	if err := store.SetSourcePath(ctx, ok.ID, "/work/ok.mp4"); err != nil {
		t.Fatalf("SetSourcePath: %v", err)
	}
	if err := store.UpdateProgress(ctx, ok.ID, "transcribing", 40, "Transcribing"); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	got, _ := store.Get(ctx, ok.ID)
	if got.ProgressStage != "transcribing" || got.ProgressPercent != 40 || got.SourcePath != "/work/ok.mp4" {
		t.Fatalf("unexpected progress: %+v", got)
	}

	if err := store.Complete(ctx, ok.ID, "/out/ok_censored.mp4", 3); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := store.Fail(ctx, bad.ID, "transcription", "no speech"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	done, _ := store.Get(ctx, ok.ID)
	if done.Status != jobs.StatusCompleted || done.OutputPath != "/out/ok_censored.mp4" || done.CensoredCount != 3 || done.FinishedAt == nil {
		t.Fatalf("unexpected completed job: %+v", done)
	}
	failed, _ := store.Get(ctx, bad.ID)
	if failed.Status != jobs.StatusFailed || failed.ErrorKind != "transcription" || failed.ErrorMessage != "no speech" {
		t.Fatalf("unexpected failed job: %+v", failed)
	}
	if err := store.UpdateProgress(ctx, ok.ID, "late", 50, ""); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected progress on finished job to be rejected, got %v", err)
	}

	n, err := store.Retry(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Retry = %d, %v", n, err)
	}
	retried, _ := store.Get(ctx, bad.ID)
	if retried.Status != jobs.StatusQueued || retried.ErrorKind != "" {
		t.Fatalf("expected requeued job, got %+v", retried)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 2 || summary.Completed != 1 || summary.Queued != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestFailWithCanceledKindMarksCanceled(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job, _ := store.Enqueue(ctx, jobs.NewJob{Source: "/c.mp4"})
	if err := store.Fail(ctx, job.ID, "canceled", "processing canceled"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Status != jobs.StatusCanceled {
		t.Fatalf("expected canceled, got %s", got.Status)
	}
}

func TestCancelQueuedOnlyAffectsQueuedJobs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	queued, _ := store.Enqueue(ctx, jobs.NewJob{Source: "/q.mp4"})

	canceled, err := store.CancelQueued(ctx, queued.ID)
	if err != nil || !canceled {
		t.Fatalf("CancelQueued = %v, %v", canceled, err)
	}
	again, err := store.CancelQueued(ctx, queued.ID)
	if err != nil || again {
		t.Fatalf("expected second cancel to be a no-op, got %v, %v", again, err)
	}
}

func TestRecoveryHelpers(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, src := range []string{"/1.mp4", "/2.mp4"} {
		if _, err := store.Enqueue(ctx, jobs.NewJob{Source: src}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext: %v", err)
		}
	}

	n, err := store.ReclaimStale(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("expected fresh heartbeats to be kept, got %d, %v", n, err)
	}
	n, err = store.ReclaimStale(ctx, time.Now().Add(time.Second))
	if err != nil || n != 2 {
		t.Fatalf("expected stale jobs reclaimed, got %d, %v", n, err)
	}

	n, err = store.RequeueProcessing(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing left processing, got %d, %v", n, err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("ClaimNext: %+v, %v", claimed, err)
	}
	n, err = store.RequeueProcessing(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RequeueProcessing = %d, %v", n, err)
	}
	if _, err := store.CancelQueued(ctx, claimed.ID); err != nil {
		t.Fatalf("CancelQueued: %v", err)
	}
	list, err := store.List(ctx, jobs.StatusCanceled)
	if err != nil || len(list) != 1 || list[0].ID != claimed.ID {
		t.Fatalf("expected one canceled job, got %d, %v", len(list), err)
	}

	cleared, err := store.ClearFinished(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("ClearFinished = %d, %v", cleared, err)
	}
}

func TestRemoveRefusesProcessingJobs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job, _ := store.Enqueue(ctx, jobs.NewJob{Source: "/r.mp4"})
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	removed, err := store.Remove(ctx, job.ID)
	if err != nil || removed {
		t.Fatalf("expected processing job to be kept, got %v, %v", removed, err)
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := jobs.ParseStatus(" Failed "); !ok || s != jobs.StatusFailed {
		t.Fatalf("ParseStatus = %q, %v", s, ok)
	}
	if _, ok := jobs.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if !jobs.StatusCanceled.Terminal() || jobs.StatusProcessing.Terminal() {
		t.Fatal("unexpected terminal classification")
	}
}
