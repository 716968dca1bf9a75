package progress_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"bleep/internal/logging"
	"bleep/internal/progress"
	"bleep/internal/services"
)

func TestSafeSinkDeliversAndStampsEvents(t *testing.T) {
	var got []progress.Event
	sink := progress.NewSafeSink("job-1", func(e progress.Event) error {
		got = append(got, e)
		return nil
	}, logging.NewNop())

	sink.Progress("extracting", 25, "Extracting audio")
	sink.Progress("combining", 20, "regressed")
	sink.Complete("/out/video.mp4", "Complete")
	sink.Progress("late", 99, "ignored")
	sink.Fail("late", errors.New("ignored"))

	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %+v", got)
	}
	if got[0].JobID != "job-1" || got[0].Time.IsZero() {
		t.Fatalf("expected stamped event, got %+v", got[0])
	}
	if got[1].Percent != 25 {
		t.Fatalf("expected monotonic percent, got %v", got[1].Percent)
	}
	if got[2].Kind != progress.KindComplete || got[2].OutputPath != "/out/video.mp4" || got[2].Percent != 100 {
		t.Fatalf("unexpected terminal event: %+v", got[2])
	}
	if !sink.Terminated() {
		t.Fatal("expected sink to be terminated")
	}
}

func TestSafeSinkFailCarriesDetail(t *testing.T) {
	var got []progress.Event
	sink := progress.NewSafeSink("job-2", func(e progress.Event) error {
		got = append(got, e)
		return nil
	}, nil)
	sink.Progress("transcribing", 40, "Transcribing")
	sink.Fail("transcribing", services.Wrap(services.ErrTranscription, "transcription", "whisper api", "rate limited", nil))

	last := got[len(got)-1]
	if last.Kind != progress.KindError || last.Error == nil {
		t.Fatalf("expected error event, got %+v", last)
	}
	if last.Error.Kind != services.KindTranscription {
		t.Fatalf("unexpected kind %q", last.Error.Kind)
	}
	if last.Percent != 40 {
		t.Fatalf("expected error event at last percent, got %v", last.Percent)
	}
}

func TestSafeSinkStopsAfterFailureAndRecoversPanics(t *testing.T) {
	tests := []struct {
		name string
		sink progress.Sink
	}{
		{name: "error", sink: func(progress.Event) error { return errors.New("broken pipe") }},
		{name: "panic", sink: func(progress.Event) error { panic("client gone") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			var buf bytes.Buffer
			logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
			if err != nil {
				t.Fatalf("logger: %v", err)
			}
			sink := progress.NewSafeSink("job-3", func(e progress.Event) error {
				calls++
				return tc.sink(e)
			}, logger)

			sink.Progress("verifying", 5, "Verifying input")
			sink.Progress("extracting", 25, "Extracting audio")
			sink.Complete("/out.mp4", "done")

			if calls != 1 {
				t.Fatalf("expected delivery to stop after first failure, got %d calls", calls)
			}
			if !sink.Terminated() {
				t.Fatal("terminal state must still be tracked")
			}
			if !strings.Contains(buf.String(), "progress sink failed") {
				t.Fatalf("expected warning log, got %q", buf.String())
			}
		})
	}
}

func TestTee(t *testing.T) {
	var a, b int
	sink := progress.Tee(
		func(progress.Event) error { a++; return errors.New("a failed") },
		nil,
		func(progress.Event) error { b++; return nil },
	)
	if err := sink(progress.Event{}); err == nil {
		t.Fatal("expected first error")
	}
	if a != 1 || b != 1 {
		t.Fatalf("expected both sinks called, got a=%d b=%d", a, b)
	}
}

func receive(t *testing.T, ch <-chan progress.Event) (progress.Event, bool) {
	t.Helper()
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return progress.Event{}, false
	}
}

func TestHubSubscribeReplaysLatestAndClosesOnTerminal(t *testing.T) {
	hub := progress.NewHub()
	publish := hub.Sink("job-9")
	_ = publish(progress.Event{Kind: progress.KindProgress, Percent: 40})

	ch, cancel := hub.Subscribe("job-9")
	defer cancel()
	if e, _ := receive(t, ch); e.Percent != 40 || e.JobID != "job-9" {
		t.Fatalf("expected replayed latest event, got %+v", e)
	}

	_ = publish(progress.Event{Kind: progress.KindProgress, Percent: 60})
	if e, _ := receive(t, ch); e.Percent != 60 {
		t.Fatalf("expected live event, got %+v", e)
	}
	_ = publish(progress.Event{Kind: progress.KindComplete, Percent: 100})
	if e, _ := receive(t, ch); e.Kind != progress.KindComplete {
		t.Fatalf("expected terminal event, got %+v", e)
	}
	if _, ok := receive(t, ch); ok {
		t.Fatal("expected channel closed after terminal event")
	}

	late, lateCancel := hub.Subscribe("job-9")
	defer lateCancel()
	if e, _ := receive(t, late); e.Kind != progress.KindComplete {
		t.Fatalf("late subscriber should see terminal event, got %+v", e)
	}
	if _, ok := receive(t, late); ok {
		t.Fatal("late subscriber channel should be closed")
	}
}

func TestHubDropsOldestWhenSubscriberIsSlow(t *testing.T) {
	hub := progress.NewHub()
	ch, cancel := hub.Subscribe("slow")
	defer cancel()
	for i := range 200 {
		hub.Publish(progress.Event{JobID: "slow", Kind: progress.KindProgress, Percent: float64(i)})
	}
	var last progress.Event
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Percent != 199 {
		t.Fatalf("expected newest event retained, got %v", last.Percent)
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := progress.NewHub()
	ch, cancel := hub.Subscribe("job")
	cancel()
	cancel()
	if _, ok := receive(t, ch); ok {
		t.Fatal("expected closed channel")
	}
	hub.Publish(progress.Event{JobID: "job", Kind: progress.KindProgress})
	if _, ok := hub.Latest("job"); !ok {
		t.Fatal("expected latest event recorded")
	}
	hub.Forget("job")
	if _, ok := hub.Latest("job"); ok {
		t.Fatal("expected state forgotten")
	}
}

func TestHubExpiresTerminalState(t *testing.T) {
	hub := progress.NewHub(progress.WithTerminalRetention(10 * time.Millisecond))
	publish := hub.Sink("done")
	_ = publish(progress.Event{Kind: progress.KindProgress, Percent: 50})
	_ = publish(progress.Event{Kind: progress.KindComplete, Percent: 100})
	if _, ok := hub.Latest("done"); !ok {
		t.Fatal("expected terminal event retained right after completion")
	}

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := hub.Latest("done"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("terminal state was never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubKeepsStateOfRestartedJob(t *testing.T) {
	hub := progress.NewHub(progress.WithTerminalRetention(20 * time.Millisecond))
	publish := hub.Sink("retry")
	_ = publish(progress.Event{Kind: progress.KindError})
	_ = publish(progress.Event{Kind: progress.KindProgress, Percent: 5})

	time.Sleep(60 * time.Millisecond)
	latest, ok := hub.Latest("retry")
	if !ok || latest.Terminal() || latest.Percent != 5 {
		t.Fatalf("expected in-flight state kept, got %+v ok=%v", latest, ok)
	}
}
