// Package octree implements a linearized sparse voxel octree: a flat byte
// buffer encoding cubic-volume occupancy, laid out for direct upload to a
// GPU storage buffer and traversal by a compute shader.
//
// Nodes are addressed implicitly. The root occupies byte offset 0 and child
// c (0-7) of the node at offset o occupies offset o*8 + c + 1, the 8-ary
// generalization of binary-heap indexing. Bit c of a node's byte flags its
// c-th child; a node's own state lives in its parent's byte, never its own.
// Only non-leaf nodes own a byte: unit cells store their occupancy in the
// terminal bit of their parent.
package octree

import "math/bits"

// DefaultAlignment is the buffer alignment applied by NewTree, matching the
// storage-buffer offset alignment of common GPU backends.
const DefaultAlignment = 256

// Tree is the linearized octree over a cubic domain of side size.
// It is a single-owner structure with no internal locking; every operation
// completes in O(log8 size).
type Tree struct {
	data []byte
	size int
}

// EstimatedSize returns the unaligned byte count needed for a domain of
// side size: one byte per non-leaf node of a complete octree of depth
// log2(size).
func EstimatedSize(size int) int {
	depth := uint(bits.Len(uint(size)) - 1)
	return ((pow8(depth+1)-1)/7 - 1) / 8
}

// EstimatedSizeAligned rounds EstimatedSize up to the next multiple of
// alignment. alignment must be a power of two.
func EstimatedSizeAligned(size, alignment int) int {
	return (EstimatedSize(size) + alignment - 1) &^ (alignment - 1)
}

// NewTree allocates a zeroed tree for a domain of side size, aligned to
// DefaultAlignment. size must be a positive power of two; this is a
// programmer contract, violations panic.
func NewTree(size int) *Tree {
	return NewTreeAligned(size, DefaultAlignment)
}

// NewTreeAligned is NewTree with a caller-chosen buffer alignment.
func NewTreeAligned(size, alignment int) *Tree {
	if size <= 0 || size&(size-1) != 0 {
		panic("octree: size must be a positive power of two")
	}
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		panic("octree: alignment must be a positive power of two")
	}
	return &Tree{
		data: make([]byte, EstimatedSizeAligned(size, alignment)),
		size: size,
	}
}

func pow8(exp uint) int { return 1 << (3 * exp) }

// SetBlockState records the occupancy of the unit cell containing at.
// Descending from the root, the bit for each matched child is set
// unconditionally, so the whole root-to-leaf path stays marked as visited.
// The terminal bit alone carries the actual state: clearing a voxel never
// unclears its ancestors. That asymmetry is part of the encoding the
// traversal shader was built against; rebuild the tree to reclaim interior
// bits.
func (t *Tree) SetBlockState(at Point3D, state bool) {
	cell := NewCell(Point3D{}, Uniform(t.size))
	offset := 0

	for {
		children, ok := cell.Subdivide()
		if !ok {
			return
		}
		idx := childContaining(&children, at)
		if idx < 0 {
			return
		}

		next := offset*8 + idx + 1
		mask := byte(1) << idx

		t.data[offset] |= mask

		// The bounds check must happen before next is ever used as an
		// index: past the last allocated level there is no child byte,
		// and bit idx of the current byte holds the leaf's occupancy
		// instead of a presence flag.
		if next >= len(t.data) {
			t.data[offset] = t.data[offset]&^mask | boolBit(state)<<idx
			return
		}

		offset = next
		cell = children[idx]
	}
}

// GetBlockState reports the occupancy of the unit cell containing at. An
// unset bit anywhere on the path proves the subtree was never marked and
// short-circuits to false. Reaching a unit cell with every bit on the path
// set means occupied.
func (t *Tree) GetBlockState(at Point3D) bool {
	cell := NewCell(Point3D{}, Uniform(t.size))
	offset := 0

	for {
		children, ok := cell.Subdivide()
		if !ok {
			return true
		}
		idx := childContaining(&children, at)
		if idx < 0 {
			return true
		}

		mask := byte(1) << idx
		if t.data[offset]&mask != mask {
			return false
		}

		offset = offset*8 + idx + 1
		cell = children[idx]
	}
}

// RawData exposes the backing buffer for upload. Byte order and layout are
// the wire contract with the traversal shader; consumers must walk it with
// the same offset*8+c+1 recurrence and child enumeration.
func (t *Tree) RawData() []byte {
	return t.data
}

// Size returns the domain side length in voxels.
func (t *Tree) Size() int {
	return t.size
}

// Reset zeroes the buffer in place so the tree can be rebuilt without
// reallocating.
func (t *Tree) Reset() {
	clear(t.data)
}

func childContaining(children *[8]Cell, p Point3D) int {
	for i := range children {
		if children[i].Contains(p) {
			return i
		}
	}
	return -1
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}
