package history_test

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"lipsync/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	if _, err := store.Record(ctx, history.Run{
		RunID: "a", Root: "/opt/app", Folder: `C:\media`, EnvCreated: true,
		Outcome: history.OutcomeSucceeded, StartedAt: base, FinishedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Record a: %v", err)
	}
	if _, err := store.Record(ctx, history.Run{
		RunID: "b", Root: "/opt/app", Outcome: history.OutcomeFailed, FailedStep: "fetch",
		ExitCode: 1, ErrorMessage: "boom", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Record b: %v", err)
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "b" || runs[1].RunID != "a" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[1].Folder != `C:\media` || !runs[1].EnvCreated || runs[1].Duration() != time.Minute {
		t.Fatalf("round trip lost data: %+v", runs[1])
	}
	if runs[0].FailedStep != "fetch" || runs[0].ExitCode != 1 || runs[0].Folder != "" {
		t.Fatalf("failed run = %+v", runs[0])
	}

	last, err := store.Last(ctx)
	if err != nil || last == nil || last.RunID != "b" {
		t.Fatalf("Last = %+v, %v", last, err)
	}
	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited = %v, %v", limited, err)
	}
}

func TestRecordRequiresRunID(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), history.Run{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLastEmpty(t *testing.T) {
	store := openStore(t)
	last, err := store.Last(context.Background())
	if err != nil || last != nil {
		t.Fatalf("Last = %+v, %v", last, err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Run{RunID: "x", Root: "/r", Outcome: history.OutcomeSucceeded}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v, %v", runs, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestListOrdersSubSecondStarts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	whole := time.Date(2026, 10, 1, 12, 0, 5, 0, time.UTC)

	if _, err := store.Record(ctx, history.Run{RunID: "later", Root: "/opt/app", StartedAt: whole.Add(500 * time.Millisecond)}); err != nil {
		t.Fatalf("Record later: %v", err)
	}
	if _, err := store.Record(ctx, history.Run{RunID: "earlier", Root: "/opt/app", StartedAt: whole}); err != nil {
		t.Fatalf("Record earlier: %v", err)
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "later" || runs[1].RunID != "earlier" {
		t.Fatalf("order = %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if !runs[1].StartedAt.Equal(whole) {
		t.Fatalf("started_at = %v, want %v", runs[1].StartedAt, whole)
	}
}

func TestOpenReadOnlyMissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")

	if _, err := history.OpenReadOnly(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("state directory created: %v", err)
	}
}

func TestOpenReadOnlyReadsExistingRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	writer, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := writer.Record(context.Background(), history.Run{RunID: "r1", Root: "/opt/app", Outcome: history.OutcomeSucceeded}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := history.OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	t.Cleanup(func() { reader.Close() })

	last, err := reader.Last(context.Background())
	if err != nil || last == nil || last.RunID != "r1" {
		t.Fatalf("Last = %+v, %v", last, err)
	}
	if _, err := reader.Record(context.Background(), history.Run{RunID: "r2", Root: "/opt/app"}); err == nil {
		t.Fatal("expected read-only store to reject writes")
	}
}
