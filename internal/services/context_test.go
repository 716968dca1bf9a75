package services_test

import (
	"context"
	"testing"

	"bleep/internal/services"
)

func TestContextValues(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-42")
	ctx = services.WithStage(ctx, "censor")
	ctx = services.WithRequestID(ctx, "req-123")

	tests := []struct {
		name string
		get  func(context.Context) (string, bool)
		want string
	}{
		{name: "job", get: services.JobIDFromContext, want: "job-42"},
		{name: "stage", get: services.StageFromContext, want: "censor"},
		{name: "request", get: services.RequestIDFromContext, want: "req-123"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.get(ctx)
			if !ok || got != tc.want {
				t.Fatalf("got %q (%v), want %q", got, ok, tc.want)
			}
		})
	}
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	base := context.Background()
	ctx := services.WithJobID(services.WithStage(base, ""), "")
	if ctx != base {
		t.Fatal("expected context to be returned unchanged")
	}
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("unexpected stage")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("unexpected job id")
	}
}
