// Package indexdb keeps a small SQLite index of written snapshots so
// operators can find the newest artifact without scanning the data dir.
// Writes go through a single goroutine; the index is advisory and never on
// the serving path.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan SnapshotRow
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type SnapshotRow struct {
	Path    string
	SavedAt string // RFC 3339 UTC
	Chunks  int
	Bytes   int64
	SHA256  string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan SnapshotRow, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			saved_at TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			sha256 TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSnapshot enqueues a row for the writer goroutine. It never blocks;
// a full queue drops the row with an error instead of stalling the caller.
func (s *SQLiteIndex) RecordSnapshot(row SnapshotRow) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- row:
		return nil
	default:
		return fmt.Errorf("snapshot index queue full, dropping %s", row.Path)
	}
}

func (s *SQLiteIndex) loop() {
	for row := range s.ch {
		_, err := s.db.Exec(
			`INSERT INTO snapshots (path, saved_at, chunks, bytes, sha256)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET
			   saved_at=excluded.saved_at,
			   chunks=excluded.chunks,
			   bytes=excluded.bytes,
			   sha256=excluded.sha256;`,
			row.Path, row.SavedAt, row.Chunks, row.Bytes, row.SHA256,
		)
		if err != nil {
			// The index is advisory; swallow and keep draining.
			continue
		}
	}
}

// RecentSnapshots returns up to limit rows, newest first.
func (s *SQLiteIndex) RecentSnapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 16
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, saved_at, chunks, bytes, sha256
		 FROM snapshots ORDER BY saved_at DESC, path DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		if err := rows.Scan(&r.Path, &r.SavedAt, &r.Chunks, &r.Bytes, &r.SHA256); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest row, or ok=false on an empty index.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (SnapshotRow, bool, error) {
	rows, err := s.RecentSnapshots(ctx, 1)
	if err != nil {
		return SnapshotRow{}, false, err
	}
	if len(rows) == 0 {
		return SnapshotRow{}, false, nil
	}
	return rows[0], true, nil
}
