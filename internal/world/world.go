// Package world keys chunks by chunk coordinate and routes world-space
// block edits to the owning chunk's dense grid and octree.
package world

import (
	"sort"

	"voxelray.ai/internal/voxel/chunk"
	"voxelray.ai/internal/voxel/octree"
)

// ChunkKey addresses a chunk by its coordinate in chunk units.
type ChunkKey struct {
	CX, CY, CZ int
}

// World holds loaded chunks. It has no internal locking: a single
// orchestrator owns it, and concurrent access is the caller's discipline
// (the ws server serializes through its own mutex).
type World struct {
	chunkSize int
	alignment int
	chunks    map[ChunkKey]*chunk.Chunk
	dirty     map[ChunkKey]struct{}
}

// New creates an empty world of cubic chunks with side chunkSize and the
// default octree buffer alignment. chunkSize must be a positive power of
// two.
func New(chunkSize int) *World {
	return NewAligned(chunkSize, octree.DefaultAlignment)
}

// NewAligned is New with a caller-chosen octree buffer alignment, typically
// the GPU backend's storage-buffer offset alignment.
func NewAligned(chunkSize, alignment int) *World {
	if chunkSize <= 0 || chunkSize&(chunkSize-1) != 0 {
		panic("world: chunk size must be a positive power of two")
	}
	return &World{
		chunkSize: chunkSize,
		alignment: alignment,
		chunks:    map[ChunkKey]*chunk.Chunk{},
		dirty:     map[ChunkKey]struct{}{},
	}
}

// ChunkSize returns the side length of every chunk in the world.
func (w *World) ChunkSize() int {
	return w.chunkSize
}

// Alignment returns the octree buffer alignment chunks are created with.
func (w *World) Alignment() int {
	return w.alignment
}

// Chunk returns the loaded chunk at k, or nil.
func (w *World) Chunk(k ChunkKey) *chunk.Chunk {
	return w.chunks[k]
}

// GetOrCreateChunk returns the chunk at k, allocating an empty one on first
// touch.
func (w *World) GetOrCreateChunk(k ChunkKey) *chunk.Chunk {
	if ch, ok := w.chunks[k]; ok {
		return ch
	}
	ch := chunk.NewAligned(octree.Point3D{
		X: k.CX * w.chunkSize,
		Y: k.CY * w.chunkSize,
		Z: k.CZ * w.chunkSize,
	}, w.chunkSize, w.alignment)
	w.chunks[k] = ch
	return ch
}

// PutChunk installs a chunk at k, replacing any loaded one.
func (w *World) PutChunk(k ChunkKey, ch *chunk.Chunk) {
	w.chunks[k] = ch
	w.dirty[k] = struct{}{}
}

// LoadedChunkKeys returns the keys of all loaded chunks in deterministic
// order.
func (w *World) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// SetBlock writes a voxel at a world position, updating both the dense grid
// and the octree of the owning chunk. A zero value clears occupancy,
// anything else sets it.
func (w *World) SetBlock(p octree.Point3D, v uint16) {
	k, l := w.split(p)
	ch := w.GetOrCreateChunk(k)
	ch.SetVoxel(v, l.X, l.Y, l.Z)
	if v == 0 {
		ch.RemBlock(l)
	} else {
		ch.AddBlock(l)
	}
	w.dirty[k] = struct{}{}
}

// GetBlock reads the voxel value at a world position. Unloaded chunks read
// as zero.
func (w *World) GetBlock(p octree.Point3D) uint16 {
	k, l := w.split(p)
	ch := w.chunks[k]
	if ch == nil {
		return 0
	}
	return ch.Voxel(l.X, l.Y, l.Z)
}

// Occupied reports octree occupancy at a world position. Unloaded chunks
// read as empty.
func (w *World) Occupied(p octree.Point3D) bool {
	k, l := w.split(p)
	ch := w.chunks[k]
	if ch == nil {
		return false
	}
	return ch.Occupied(l)
}

// DirtyChunks returns the keys of chunks modified since their last
// MarkClean, in deterministic order.
func (w *World) DirtyChunks() []ChunkKey {
	keys := make([]ChunkKey, 0, len(w.dirty))
	for k := range w.dirty {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// MarkClean drops k from the dirty set, typically after a snapshot.
func (w *World) MarkClean(k ChunkKey) {
	delete(w.dirty, k)
}

func (w *World) split(p octree.Point3D) (ChunkKey, octree.Point3D) {
	k := ChunkKey{
		CX: floorDiv(p.X, w.chunkSize),
		CY: floorDiv(p.Y, w.chunkSize),
		CZ: floorDiv(p.Z, w.chunkSize),
	}
	l := octree.Point3D{
		X: mod(p.X, w.chunkSize),
		Y: mod(p.Y, w.chunkSize),
		Z: mod(p.Z, w.chunkSize),
	}
	return k, l
}

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
}
