// Package config loads the server's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ChunkSize is the side length of every chunk in voxels. Power of two.
	ChunkSize int `yaml:"chunk_size"`
	// BufferAlignment pads octree buffers to the GPU backend's
	// storage-buffer offset alignment. Power of two.
	BufferAlignment int `yaml:"buffer_alignment"`

	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`

	SnapshotEverySec int `yaml:"snapshot_every_sec"`
	PushEveryMs      int `yaml:"push_every_ms"`
}

func Default() Config {
	return Config{
		ChunkSize:        16,
		BufferAlignment:  256,
		ListenAddr:       ":8080",
		DataDir:          "./data",
		SnapshotEverySec: 60,
		PushEveryMs:      250,
	}
}

// Load reads path and fills unset fields from Default. A missing file is an
// error; run with no -config flag to use defaults.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	c.applyDefaults()
	return c, c.Validate()
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.ChunkSize == 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.BufferAlignment == 0 {
		c.BufferAlignment = d.BufferAlignment
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.SnapshotEverySec == 0 {
		c.SnapshotEverySec = d.SnapshotEverySec
	}
	if c.PushEveryMs == 0 {
		c.PushEveryMs = d.PushEveryMs
	}
}

func (c Config) Validate() error {
	if c.ChunkSize <= 1 || c.ChunkSize&(c.ChunkSize-1) != 0 {
		return fmt.Errorf("chunk_size %d: must be a power of two >= 2", c.ChunkSize)
	}
	if c.BufferAlignment <= 0 || c.BufferAlignment&(c.BufferAlignment-1) != 0 {
		return fmt.Errorf("buffer_alignment %d: must be a positive power of two", c.BufferAlignment)
	}
	if c.SnapshotEverySec < 0 {
		return fmt.Errorf("snapshot_every_sec %d: must be >= 0", c.SnapshotEverySec)
	}
	if c.PushEveryMs <= 0 {
		return fmt.Errorf("push_every_ms %d: must be > 0", c.PushEveryMs)
	}
	return nil
}
