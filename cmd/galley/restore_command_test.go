package main

import (
	"context"
	"path/filepath"
	"testing"

	"galley/internal/journal"
	"galley/internal/testsupport"
)

func TestRestoreCommandRequiresLockfile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"restore"}, env.configPath)
	if err == nil {
		t.Fatal("expected error without lockfile")
	}
	requireContains(t, err.Error(), "renv.lock not found")
}

func TestRestoreCommandRestoresLibrary(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTextFile(t, filepath.Join(env.cfg.ProjectRoot, "renv.lock"), "{}\n")

	out, _, err := runCLI(t, []string{"restore"}, env.configPath)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	requireContains(t, out, "Package library restored")

	store := testsupport.MustOpenJournal(t, env.cfg)
	run, latestErr := store.Latest(context.Background(), journal.KindRestore)
	if latestErr != nil {
		t.Fatalf("Latest: %v", latestErr)
	}
	if run == nil || run.Status != journal.StatusSucceeded {
		t.Fatalf("expected succeeded restore run, got %+v", run)
	}
}

func TestRestoreCommandToolFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTextFile(t, filepath.Join(env.cfg.ProjectRoot, "renv.lock"), "{}\n")
	overrideStub(t, env, "Rscript", "#!/bin/sh\nexit 1\n")

	_, _, err := runCLI(t, []string{"restore"}, env.configPath)
	if err == nil {
		t.Fatal("expected restore error")
	}

	store := testsupport.MustOpenJournal(t, env.cfg)
	run, latestErr := store.Latest(context.Background(), journal.KindRestore)
	if latestErr != nil {
		t.Fatalf("Latest: %v", latestErr)
	}
	if run == nil || run.Status != journal.StatusFailed {
		t.Fatalf("expected failed restore run, got %+v", run)
	}
}

func TestSnapshotCommandUpdatesLockfile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"snapshot"}, env.configPath)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	requireContains(t, out, "Lockfile updated")

	store := testsupport.MustOpenJournal(t, env.cfg)
	run, latestErr := store.Latest(context.Background(), journal.KindSnapshot)
	if latestErr != nil {
		t.Fatalf("Latest: %v", latestErr)
	}
	if run == nil || run.Status != journal.StatusSucceeded {
		t.Fatalf("expected succeeded snapshot run, got %+v", run)
	}
}
