package testsupport

import (
	"context"
	"testing"

	"lipsync/internal/config"
	"lipsync/internal/history"
)

// MustOpenHistory opens the history store configured by cfg and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Runs lists every recorded run, newest first.
func Runs(t testing.TB, store *history.Store) []history.Run {
	t.Helper()

	runs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("history.List: %v", err)
	}
	return runs
}
