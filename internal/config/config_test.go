package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	body := "chunk_size: 32\nlisten_addr: \":9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ChunkSize != 32 {
		t.Fatalf("chunk_size: got %d", c.ChunkSize)
	}
	if c.ListenAddr != ":9000" {
		t.Fatalf("listen_addr: got %q", c.ListenAddr)
	}
	if c.BufferAlignment != 256 || c.PushEveryMs != 250 {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestLoadRejectsBadChunkSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("chunk_size: 12\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for non-power-of-two chunk_size")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
