package testsupport

import (
	"testing"

	"bleep/internal/config"
	"bleep/internal/jobs"
)

// MustOpenStore opens the job store for cfg and closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
