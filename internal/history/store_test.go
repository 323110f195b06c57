package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"surveymerge/internal/history"
)

func openStore(t *testing.T) (*history.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestBeginFinishGet(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	run := &history.Run{MemberFile: "/in/member.sav", SpouseFile: "/in/spouse.sav", ConfigPath: "/etc/sm.toml"}
	if err := store.Begin(ctx, run); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run id to be assigned")
	}

	started, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if started == nil || started.Status != history.StatusRunning || started.FinishedAt != nil {
		t.Fatalf("unexpected running row: %#v", started)
	}
	if started.MemberFile != "/in/member.sav" || started.ConfigPath != "/etc/sm.toml" {
		t.Fatalf("unexpected inputs: %#v", started)
	}

	run.MemberRows, run.SpouseRows = 10, 4
	run.MemberDropped, run.SpouseDropped = 2, 1
	run.MergedRows, run.MergedColumns = 11, 40
	run.Outputs = []history.Output{
		{Kind: "merged", Path: "/out/Merged.sav", Size: 2048, SHA256: "abc"},
		{Kind: "metadata", Path: "/out/Merged.json", Size: 10},
	}
	if err := store.Finish(ctx, run, nil); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}

	done, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if done.Status != history.StatusSucceeded || done.FinishedAt == nil {
		t.Fatalf("unexpected finished row: %#v", done)
	}
	if done.MergedRows != 11 || done.MergedColumns != 40 || done.MemberDropped != 2 || done.SpouseDropped != 1 {
		t.Fatalf("unexpected counts: %#v", done)
	}
	if len(done.Outputs) != 2 || done.Outputs[0].Kind != "merged" || done.Outputs[0].SHA256 != "abc" || done.Outputs[1].SHA256 != "" {
		t.Fatalf("unexpected outputs: %#v", done.Outputs)
	}
	if done.Duration() < 0 {
		t.Fatalf("negative duration %v", done.Duration())
	}
}

func TestFinishRecordsFailure(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	run := &history.Run{ID: "run-failed", DryRun: true}
	if err := store.Begin(ctx, run); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if err := store.Finish(ctx, run, errors.New("read member: corrupt system file")); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}

	got, err := store.Get(ctx, "run-failed")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != history.StatusFailed || got.ErrorMessage != "read member: corrupt system file" || !got.DryRun {
		t.Fatalf("unexpected failed row: %#v", got)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store, _ := openStore(t)
	if err := store.Finish(context.Background(), &history.Run{ID: "missing"}, nil); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store, _ := openStore(t)
	run, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil run, got %#v", run)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		// Sub-second offsets exercise the fixed-width timestamp ordering.
		run := &history.Run{ID: id, StartedAt: base.Add(time.Duration(i) * 1500 * time.Millisecond)}
		if err := store.Begin(ctx, run); err != nil {
			t.Fatalf("Begin(%s) returned error: %v", id, err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "third" || runs[1].ID != "second" {
		t.Fatalf("unexpected order: %v", runIDs(runs))
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(all) != 3 || all[2].ID != "first" {
		t.Fatalf("unexpected runs: %v", runIDs(all))
	}
	if !all[2].StartedAt.Equal(base) {
		t.Fatalf("started_at = %v, want %v", all[2].StartedAt, base)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	store, path := openStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenExistingLedger(t *testing.T) {
	store, path := openStore(t)
	if err := store.Begin(context.Background(), &history.Run{ID: "kept"}); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	if run, err := reopened.Get(context.Background(), "kept"); err != nil || run == nil {
		t.Fatalf("expected kept run, got %v, %v", run, err)
	}
}

func runIDs(runs []*history.Run) []string {
	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	return ids
}
