// Command server hosts a voxel world and streams chunk upload payloads
// (linearized octree + dense voxel grid) to renderer clients over
// websockets. Edits arrive over the same connection; the world is
// periodically snapshotted to disk and indexed in SQLite.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"voxelray.ai/internal/config"
	"voxelray.ai/internal/persistence/indexdb"
	"voxelray.ai/internal/persistence/snapshot"
	"voxelray.ai/internal/transport/ws"
	"voxelray.ai/internal/world"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		configPath = flag.String("config", "", "path to server.yaml (empty: built-in defaults)")
		worldID    = flag.String("world", "world_1", "world id, names the snapshot files")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		disableDB  = flag.Bool("disable_db", false, "disable the snapshot index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load the newest indexed snapshot when -snapshot is empty")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	worldDir := filepath.Join(cfg.DataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		var err error
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open snapshot index: %v", err)
		}
		defer idx.Close()
	}

	w, err := openWorld(cfg, idx, *snapPath, *loadLatest, logger)
	if err != nil {
		logger.Fatalf("open world: %v", err)
	}

	srv := ws.NewServer(w, logger, time.Duration(cfg.PushEveryMs)*time.Millisecond)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SnapshotEverySec > 0 {
		go snapshotLoop(ctx, srv, idx, worldDir, *worldID, time.Duration(cfg.SnapshotEverySec)*time.Second, logger)
	}

	go func() {
		logger.Printf("listening on %s (chunk_size=%d alignment=%d)", cfg.ListenAddr, cfg.ChunkSize, cfg.BufferAlignment)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	// Final snapshot so edits survive a restart.
	if err := saveSnapshot(srv, idx, worldDir, *worldID, logger); err != nil {
		logger.Printf("final snapshot: %v", err)
	}
}

func openWorld(cfg config.Config, idx *indexdb.SQLiteIndex, snapPath string, loadLatest bool, logger *log.Logger) (*world.World, error) {
	path := snapPath
	if path == "" && loadLatest && idx != nil {
		row, ok, err := idx.LatestSnapshot(context.Background())
		if err != nil {
			return nil, err
		}
		if ok {
			path = row.Path
		}
	}
	if path == "" {
		logger.Printf("starting fresh world")
		return world.NewAligned(cfg.ChunkSize, cfg.BufferAlignment), nil
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	w, err := world.ImportChunks(snap.ChunkSize, snap.Alignment, snap.Chunks)
	if err != nil {
		return nil, fmt.Errorf("import snapshot %s: %w", path, err)
	}
	logger.Printf("resumed from %s (%d chunks, chunk_size=%d)", path, len(snap.Chunks), snap.ChunkSize)
	return w, nil
}

func snapshotLoop(ctx context.Context, srv *ws.Server, idx *indexdb.SQLiteIndex, worldDir, worldID string, every time.Duration, logger *log.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := saveSnapshot(srv, idx, worldDir, worldID, logger); err != nil {
				logger.Printf("snapshot: %v", err)
			}
		}
	}
}

func saveSnapshot(srv *ws.Server, idx *indexdb.SQLiteIndex, worldDir, worldID string, logger *log.Logger) error {
	var snap snapshot.SnapshotV1
	dirty := false

	srv.Update(func(w *world.World) {
		if len(w.DirtyChunks()) == 0 {
			return
		}
		dirty = true
		keys := w.LoadedChunkKeys()
		snap = snapshot.SnapshotV1{
			Header: snapshot.Header{
				Version: 1,
				WorldID: worldID,
				SavedAt: time.Now().UTC().Format(time.RFC3339),
			},
			ChunkSize: w.ChunkSize(),
			Alignment: w.Alignment(),
			Chunks:    w.ExportChunks(keys),
		}
		for _, k := range w.DirtyChunks() {
			w.MarkClean(k)
		}
	})
	if !dirty {
		return nil
	}

	path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%s-%d.snap.zst", worldID, time.Now().UnixMilli()))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(raw)

	logger.Printf("snapshot %s (%d chunks, %d bytes)", path, len(snap.Chunks), len(raw))
	if idx != nil {
		if err := idx.RecordSnapshot(indexdb.SnapshotRow{
			Path:    path,
			SavedAt: snap.Header.SavedAt,
			Chunks:  len(snap.Chunks),
			Bytes:   int64(len(raw)),
			SHA256:  hex.EncodeToString(sum[:]),
		}); err != nil {
			logger.Printf("index snapshot: %v", err)
		}
	}
	return nil
}
