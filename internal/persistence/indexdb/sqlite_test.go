package indexdb

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRecordAndQuerySnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	rows := []SnapshotRow{
		{Path: "snapshots/a.snap.zst", SavedAt: "2026-01-01T00:00:00Z", Chunks: 2, Bytes: 100, SHA256: "aa"},
		{Path: "snapshots/b.snap.zst", SavedAt: "2026-01-02T00:00:00Z", Chunks: 3, Bytes: 200, SHA256: "bb"},
	}
	for _, r := range rows {
		if err := idx.RecordSnapshot(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	// Close drains the writer queue.
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	got, err := idx.RecentSnapshots(context.Background(), 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows: got %d want 2", len(got))
	}
	if got[0].Path != "snapshots/b.snap.zst" || got[0].Chunks != 3 {
		t.Fatalf("newest first: got %+v", got[0])
	}

	latest, ok, err := idx.LatestSnapshot(context.Background())
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.SHA256 != "bb" {
		t.Fatalf("latest: got %+v", latest)
	}
}

func TestRecordSameSnapshotPathUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.RecordSnapshot(SnapshotRow{Path: "x", SavedAt: "2026-01-01T00:00:00Z", Chunks: 1, Bytes: 10, SHA256: "aa"})
	_ = idx.RecordSnapshot(SnapshotRow{Path: "x", SavedAt: "2026-01-03T00:00:00Z", Chunks: 5, Bytes: 50, SHA256: "cc"})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	got, err := idx.RecentSnapshots(context.Background(), 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows: got %d want 1", len(got))
	}
	if got[0].Chunks != 5 || got[0].SHA256 != "cc" {
		t.Fatalf("upsert lost: %+v", got[0])
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
