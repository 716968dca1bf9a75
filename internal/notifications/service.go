package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bleep/internal/config"
)

const userAgent = "bleep/1.0"

// ErrNotConfigured is returned by TestNotification when no topic is set.
var ErrNotConfigured = errors.New("notifications.ntfy_topic is not configured")

// Service announces job outcomes.
type Service interface {
	NotifyJobCompleted(ctx context.Context, source, outputPath string, censored int) error
	NotifyJobFailed(ctx context.Context, source, kind, message string) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy-backed service, or a no-op when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	var topic string
	if cfg != nil {
		topic = strings.TrimSpace(cfg.Notifications.NtfyTopic)
	}
	if topic == "" {
		return noopService{}
	}
	timeout := 10 * time.Second
	if secs := cfg.Notifications.RequestTimeoutSeconds; secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	return &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

// note is one ntfy message; the zero priority leaves ntfy's default.
type note struct {
	title    string
	body     string
	tags     []string
	priority string
}

func (n note) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	for key, value := range map[string]string{
		"Title":    n.title,
		"Tags":     strings.Join(n.tags, ","),
		"Priority": n.priority,
	} {
		if value != "" {
			h.Set(key, value)
		}
	}
	return h
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, source, outputPath string, censored int) error {
	lines := []string{fmt.Sprintf("Censored %s: %s", pluralWords(censored), displaySource(source))}
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		lines = append(lines, "File: "+outputPath)
	}
	return n.post(ctx, note{
		title: "bleep - Complete",
		body:  strings.Join(lines, "\n"),
		tags:  []string{"bleep", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, source, kind, message string) error {
	head := "Failed: " + displaySource(source)
	if kind = strings.TrimSpace(kind); kind != "" {
		head += " (" + kind + ")"
	}
	lines := []string{head}
	if message = strings.TrimSpace(message); message != "" {
		lines = append(lines, message)
	}
	return n.post(ctx, note{
		title:    "bleep - Error",
		body:     strings.Join(lines, "\n"),
		tags:     []string{"bleep", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.post(ctx, note{
		title:    "bleep - Test",
		body:     "Notification system test",
		tags:     []string{"bleep", "test"},
		priority: "low",
	})
}

func (n *ntfyService) post(ctx context.Context, msg note) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header = msg.headers()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}

func displaySource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" || strings.Contains(source, "://") {
		return source
	}
	return filepath.Base(source)
}

func pluralWords(n int) string {
	if n == 1 {
		return "1 word"
	}
	return fmt.Sprintf("%d words", n)
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                        { return ErrNotConfigured }
