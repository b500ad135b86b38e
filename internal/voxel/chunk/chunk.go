// Package chunk pairs a dense voxel-type grid with a linearized octree over
// the same cubic domain. The grid carries per-voxel material values, the
// octree carries occupancy for the traversal shader; both export raw byte
// buffers for GPU upload.
package chunk

import (
	"crypto/sha256"
	"encoding/binary"

	"voxelray.ai/internal/voxel/octree"
)

// Chunk owns its grid and its octree exclusively. The two are deliberately
// independent: SetVoxel writes only the grid and AddBlock/RemBlock write
// only the octree. Layers that need them in sync update both (see
// world.World.SetBlock) or call RebuildTree.
type Chunk struct {
	pos    octree.Point3D
	size   int
	tree   *octree.Tree
	voxels []uint16

	dirty bool
	hash  [32]byte
}

// New allocates a zero-filled chunk of side size at world position pos.
// size must be a positive power of two.
func New(pos octree.Point3D, size int) *Chunk {
	return NewAligned(pos, size, octree.DefaultAlignment)
}

// NewAligned is New with a caller-chosen octree buffer alignment.
func NewAligned(pos octree.Point3D, size, alignment int) *Chunk {
	if size <= 0 || size&(size-1) != 0 {
		panic("chunk: size must be a positive power of two")
	}
	return &Chunk{
		pos:    pos,
		size:   size,
		tree:   octree.NewTreeAligned(size, alignment),
		voxels: make([]uint16, size*size*size),
	}
}

// index is the row-major layout the GPU-side dense-grid decoder expects.
func (c *Chunk) index(x, y, z int) int {
	return x + y*c.size + z*c.size*c.size
}

// SetVoxel writes a voxel value into the dense grid. Coordinates must be in
// [0, size); out-of-range values are a programmer error and fault.
func (c *Chunk) SetVoxel(v uint16, x, y, z int) {
	i := c.index(x, y, z)
	if c.voxels[i] == v {
		return
	}
	c.voxels[i] = v
	c.dirty = true
}

// Voxel reads a voxel value back from the dense grid.
func (c *Chunk) Voxel(x, y, z int) uint16 {
	return c.voxels[c.index(x, y, z)]
}

// AddBlock marks the octree leaf at the chunk-local position occupied.
func (c *Chunk) AddBlock(at octree.Point3D) {
	c.tree.SetBlockState(at, true)
}

// RemBlock marks the octree leaf at the chunk-local position empty.
func (c *Chunk) RemBlock(at octree.Point3D) {
	c.tree.SetBlockState(at, false)
}

// Occupied reports the octree occupancy at the chunk-local position.
func (c *Chunk) Occupied(at octree.Point3D) bool {
	return c.tree.GetBlockState(at)
}

// RebuildTree re-derives octree occupancy from the dense grid, treating any
// non-zero voxel as occupied. This is the only way to reclaim interior
// presence bits left behind by RemBlock, and how snapshots restore octrees
// without persisting them.
func (c *Chunk) RebuildTree() {
	c.tree.Reset()
	for z := 0; z < c.size; z++ {
		for y := 0; y < c.size; y++ {
			for x := 0; x < c.size; x++ {
				if c.voxels[c.index(x, y, z)] != 0 {
					c.tree.SetBlockState(octree.Point3D{X: x, Y: y, Z: z}, true)
				}
			}
		}
	}
}

// RawVoxels encodes the dense grid little-endian regardless of host byte
// order, so the buffer uploads identically on every platform.
func (c *Chunk) RawVoxels() []byte {
	out := make([]byte, 2*len(c.voxels))
	for i, v := range c.voxels {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

// Tree exposes the chunk's octree.
func (c *Chunk) Tree() *octree.Tree {
	return c.tree
}

// Pos returns the chunk's origin in world space.
func (c *Chunk) Pos() octree.Point3D {
	return c.pos
}

// Size returns the chunk's side length in voxels.
func (c *Chunk) Size() int {
	return c.size
}

// Voxels returns the live dense grid, for export paths that copy it.
func (c *Chunk) Voxels() []uint16 {
	return c.voxels
}

// Digest returns a content hash of the dense grid, cached until the next
// SetVoxel.
func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.voxels {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}
