package testsupport

import (
	"context"
	"testing"

	"galley/internal/config"
	"galley/internal/journal"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun records a running journal entry for tests.
func BeginRun(t testing.TB, store *journal.Store, kind journal.Kind, detail string) *journal.Run {
	t.Helper()

	run, err := store.Begin(context.Background(), kind, detail)
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return run
}
