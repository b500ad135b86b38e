package world

import (
	"fmt"

	snapv1 "voxelray.ai/internal/persistence/snapshot"
)

// ExportChunks copies the dense grids of the given chunks into snapshot
// form. Octree buffers are derived data and are not exported.
func (w *World) ExportChunks(keys []ChunkKey) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := w.chunks[k]
		if ch == nil {
			continue
		}
		voxels := make([]uint16, len(ch.Voxels()))
		copy(voxels, ch.Voxels())
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CY:     k.CY,
			CZ:     k.CZ,
			Voxels: voxels,
		})
	}
	return out
}

// ImportChunks rebuilds a world from snapshot chunks, re-deriving each
// chunk's octree from its dense grid.
func ImportChunks(chunkSize, alignment int, chunks []snapv1.ChunkV1) (*World, error) {
	w := NewAligned(chunkSize, alignment)
	wantLen := chunkSize * chunkSize * chunkSize
	for _, sc := range chunks {
		if len(sc.Voxels) != wantLen {
			return nil, fmt.Errorf("snapshot chunk (%d,%d,%d): voxels length %d, want %d",
				sc.CX, sc.CY, sc.CZ, len(sc.Voxels), wantLen)
		}
		k := ChunkKey{CX: sc.CX, CY: sc.CY, CZ: sc.CZ}
		ch := w.GetOrCreateChunk(k)
		for i, v := range sc.Voxels {
			if v == 0 {
				continue
			}
			x := i % chunkSize
			y := i / chunkSize % chunkSize
			z := i / (chunkSize * chunkSize)
			ch.SetVoxel(v, x, y, z)
		}
		ch.RebuildTree()
		_ = ch.Digest()
	}
	return w, nil
}
