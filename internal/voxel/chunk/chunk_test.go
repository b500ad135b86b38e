package chunk

import (
	"encoding/binary"
	"testing"

	"voxelray.ai/internal/voxel/octree"
)

func TestSetVoxelRowMajorLayout(t *testing.T) {
	c := New(octree.Point3D{}, 4)
	c.SetVoxel(0xBEEF, 1, 2, 3)

	raw := c.RawVoxels()
	if len(raw) != 4*4*4*2 {
		t.Fatalf("raw voxel length: got %d want %d", len(raw), 4*4*4*2)
	}

	// x + y*4 + z*16, little-endian uint16 elements.
	wantIndex := 1 + 2*4 + 3*16
	for i := 0; i < len(raw)/2; i++ {
		v := binary.LittleEndian.Uint16(raw[i*2:])
		switch i {
		case wantIndex:
			if v != 0xBEEF {
				t.Fatalf("index %d: got %#04x want 0xBEEF", i, v)
			}
		default:
			if v != 0 {
				t.Fatalf("index %d: got %#04x want 0", i, v)
			}
		}
	}

	if got := c.Voxel(1, 2, 3); got != 0xBEEF {
		t.Fatalf("voxel read-back: got %#04x", got)
	}
}

func TestAddAndRemBlock(t *testing.T) {
	c := New(octree.Point3D{}, 8)
	p := octree.Point3D{X: 7, Y: 7, Z: 7}

	if c.Occupied(p) {
		t.Fatalf("fresh chunk reports occupancy")
	}
	c.AddBlock(p)
	if !c.Occupied(p) {
		t.Fatalf("block not occupied after AddBlock")
	}
	c.RemBlock(p)
	if c.Occupied(p) {
		t.Fatalf("block still occupied after RemBlock")
	}
}

func TestSetVoxelDoesNotTouchTree(t *testing.T) {
	c := New(octree.Point3D{}, 8)
	c.SetVoxel(1, 0, 0, 0)
	if c.Occupied(octree.Point3D{}) {
		t.Fatalf("SetVoxel must not write the octree")
	}
}

func TestRebuildTree(t *testing.T) {
	c := New(octree.Point3D{}, 8)
	c.SetVoxel(NewColor(31, 0, 0), 1, 2, 3)
	c.SetVoxel(NewColor(0, 63, 0), 6, 6, 6)
	c.RebuildTree()

	if !c.Occupied(octree.Point3D{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("(1,2,3) not occupied after rebuild")
	}
	if !c.Occupied(octree.Point3D{X: 6, Y: 6, Z: 6}) {
		t.Fatalf("(6,6,6) not occupied after rebuild")
	}
	if c.Occupied(octree.Point3D{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("(0,0,0) occupied after rebuild of empty voxel")
	}

	// Rebuild reclaims everything a clear cannot.
	c.SetVoxel(0, 1, 2, 3)
	c.SetVoxel(0, 6, 6, 6)
	c.RebuildTree()
	for _, b := range c.Tree().RawData() {
		if b != 0 {
			t.Fatalf("rebuild of an empty grid left a non-zero byte")
		}
	}
}

func TestDigestTracksContent(t *testing.T) {
	c := New(octree.Point3D{}, 4)
	d0 := c.Digest()
	if d0 != c.Digest() {
		t.Fatalf("digest not stable without writes")
	}

	c.SetVoxel(7, 0, 0, 0)
	d1 := c.Digest()
	if d1 == d0 {
		t.Fatalf("digest unchanged after write")
	}

	// Writing the same value back is a no-op.
	c.SetVoxel(7, 0, 0, 0)
	if c.Digest() != d1 {
		t.Fatalf("digest changed after no-op write")
	}
}

func TestTreeSizeMatchesChunk(t *testing.T) {
	c := New(octree.Point3D{X: 16, Y: 0, Z: -16}, 16)
	if c.Tree().Size() != 16 {
		t.Fatalf("tree size: got %d want 16", c.Tree().Size())
	}
	if c.Size() != 16 {
		t.Fatalf("chunk size: got %d want 16", c.Size())
	}
	if c.Pos() != (octree.Point3D{X: 16, Y: 0, Z: -16}) {
		t.Fatalf("chunk pos: got %+v", c.Pos())
	}
}

func TestNewColor(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    uint16
	}{
		{31, 63, 31, 0xFFFF},
		{31, 0, 0, 0x001F},
		{0, 63, 0, 0x07E0},
		{0, 0, 31, 0xF800},
		{0, 0, 0, 0x0000},
	}
	for _, tc := range cases {
		if got := NewColor(tc.r, tc.g, tc.b); got != tc.want {
			t.Fatalf("color (%d,%d,%d): got %#04x want %#04x", tc.r, tc.g, tc.b, got, tc.want)
		}
	}
}
