package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shipconf/internal/history"
	"shipconf/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	if err := store.StartRun(ctx, "run-1", started, false); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != history.RunRunning || !run.StartedAt.Equal(started) {
		t.Fatalf("unexpected run after start: %+v", run)
	}

	records := []history.FileRecord{
		{RunID: "run-1", FileName: "A.pdf", SourcePath: "/in/A.pdf", ShipmentID: "SHIP42", IdentifierSource: "barcode", Outcome: "succeeded", Destination: "/out/A.pdf", ProcessedAt: started.Add(time.Second)},
		{RunID: "run-1", FileName: "C.pdf", SourcePath: "/in/C.pdf", Outcome: "failed", Destination: "/problem/C.pdf", ErrorKind: "resolution", ErrorMessage: "no barcode", ProcessedAt: started.Add(2 * time.Second)},
	}
	for _, rec := range records {
		if err := store.RecordFile(ctx, rec); err != nil {
			t.Fatalf("RecordFile: %v", err)
		}
	}

	finished := started.Add(3 * time.Second)
	if err := store.FinishRun(ctx, history.Run{ID: "run-1", Status: history.RunSucceeded, FinishedAt: finished, FilesTotal: 2, FilesSucceeded: 1, FilesFailed: 1}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunSucceeded || run.FilesTotal != 2 || run.FilesFailed != 1 {
		t.Fatalf("unexpected finished run: %+v", run)
	}
	if run.Duration() != 3*time.Second {
		t.Fatalf("unexpected duration %v", run.Duration())
	}

	files, err := store.RunFiles(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if len(files) != 2 || files[0].ShipmentID != "SHIP42" || files[1].ShipmentID != "" {
		t.Fatalf("unexpected run files: %+v", files)
	}

	failed, err := store.FailedFiles(ctx, 10)
	if err != nil {
		t.Fatalf("FailedFiles: %v", err)
	}
	if len(failed) != 1 || failed[0].FileName != "C.pdf" || failed[0].ErrorKind != "resolution" {
		t.Fatalf("unexpected failed files: %+v", failed)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "middle", "new"} {
		if err := store.StartRun(ctx, id, base.Add(time.Duration(i)*time.Minute), i == 1); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "middle" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if !runs[1].DryRun {
		t.Fatal("dry run flag lost")
	}
}

func TestGetRunMissing(t *testing.T) {
	store, err := history.OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), "nope")
	if err != nil || run != nil {
		t.Fatalf("expected nil run, got %+v %v", run, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.StartRun(context.Background(), "run-1", time.Now(), false); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	store.Close()

	store, err = history.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	runs, err := store.RecentRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %+v %v", runs, err)
	}
}

func TestStartRunRequiresID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if err := store.StartRun(context.Background(), "", time.Now(), false); err == nil {
		t.Fatal("expected error for empty run id")
	}
	if err := store.RecordFile(context.Background(), history.FileRecord{RunID: "missing", FileName: "x", SourcePath: "/x", Outcome: "failed"}); err == nil {
		t.Fatal("expected foreign key violation for unknown run")
	}
}
