package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bleep/internal/config"
	"bleep/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, <-chan captured) {
	t.Helper()
	ch := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobCompleted(context.Background(), "/v/a.mp4", "/out/a.mp4", 1); err != nil {
		t.Fatalf("noop completion returned %v", err)
	}
	if err := svc.TestNotification(context.Background()); !errors.Is(err, notifications.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name         string
		send         func(notifications.Service) error
		wantTitle    string
		wantBody     string
		wantTags     string
		wantPriority string
	}{
		{
			name: "completed",
			send: func(s notifications.Service) error {
				return s.NotifyJobCompleted(context.Background(), "/videos/talk.mp4", "/out/talk_censored.mp4", 3)
			},
			wantTitle: "bleep - Complete",
			wantBody:  "Censored 3 words: talk.mp4\nFile: /out/talk_censored.mp4",
			wantTags:  "bleep,completed",
		},
		{
			name: "completed single url",
			send: func(s notifications.Service) error {
				return s.NotifyJobCompleted(context.Background(), "https://example.com/v", "", 1)
			},
			wantTitle: "bleep - Complete",
			wantBody:  "Censored 1 word: https://example.com/v",
			wantTags:  "bleep,completed",
		},
		{
			name: "failed",
			send: func(s notifications.Service) error {
				return s.NotifyJobFailed(context.Background(), "/videos/talk.mp4", "transcription", "rate limited")
			},
			wantTitle:    "bleep - Error",
			wantBody:     "Failed: talk.mp4 (transcription)\nrate limited",
			wantTags:     "bleep,error",
			wantPriority: "high",
		},
		{
			name:         "test",
			send:         func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			wantTitle:    "bleep - Test",
			wantBody:     "Notification system test",
			wantTags:     "bleep,test",
			wantPriority: "low",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, ch := newNtfyServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("send: %v", err)
			}
			got := <-ch
			if got.title != tc.wantTitle || got.body != tc.wantBody || got.tags != tc.wantTags || got.priority != tc.wantPriority {
				t.Fatalf("unexpected request %+v", got)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
