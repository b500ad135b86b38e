// Command inspect reads a snapshot, rebuilds a chunk's octree from its
// dense grid and dumps the buffer, either as a summary or as the byte path
// a traversal would follow to a given voxel.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"voxelray.ai/internal/persistence/snapshot"
	"voxelray.ai/internal/voxel/chunk"
	"voxelray.ai/internal/voxel/octree"
)

func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to snapshot (required)")
		list     = flag.Bool("list", false, "list chunks and exit")
		chunkKey = flag.String("chunk", "0,0,0", "chunk coordinate cx,cy,cz")
		at       = flag.String("at", "", "chunk-local voxel x,y,z to trace (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", 0)

	if *snapPath == "" {
		logger.Fatalf("-snapshot is required")
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		logger.Fatalf("read snapshot: %v", err)
	}

	fmt.Printf("snapshot %s: world=%s saved_at=%s chunk_size=%d alignment=%d chunks=%d\n",
		*snapPath, snap.Header.WorldID, snap.Header.SavedAt, snap.ChunkSize, snap.Alignment, len(snap.Chunks))

	if *list {
		for _, sc := range snap.Chunks {
			fmt.Printf("  chunk (%d,%d,%d): %d occupied voxels\n", sc.CX, sc.CY, sc.CZ, occupiedCount(sc.Voxels))
		}
		return
	}

	cx, cy, cz, err := parseTriple(*chunkKey)
	if err != nil {
		logger.Fatalf("bad -chunk: %v", err)
	}
	sc, ok := findChunk(snap, cx, cy, cz)
	if !ok {
		logger.Fatalf("chunk (%d,%d,%d) not in snapshot", cx, cy, cz)
	}

	ch := rebuild(snap, sc)
	tree := ch.Tree()
	raw := tree.RawData()

	fmt.Printf("chunk (%d,%d,%d): octree %d bytes (%d unaligned), %d non-zero\n",
		cx, cy, cz, len(raw), octree.EstimatedSize(snap.ChunkSize), nonZero(raw))

	if *at != "" {
		x, y, z, err := parseTriple(*at)
		if err != nil {
			logger.Fatalf("bad -at: %v", err)
		}
		trace(tree, octree.Point3D{X: x, Y: y, Z: z})
	}
}

func rebuild(snap snapshot.SnapshotV1, sc snapshot.ChunkV1) *chunk.Chunk {
	ch := chunk.NewAligned(octree.Point3D{
		X: sc.CX * snap.ChunkSize,
		Y: sc.CY * snap.ChunkSize,
		Z: sc.CZ * snap.ChunkSize,
	}, snap.ChunkSize, snap.Alignment)
	for i, v := range sc.Voxels {
		if v == 0 {
			continue
		}
		x := i % snap.ChunkSize
		y := i / snap.ChunkSize % snap.ChunkSize
		z := i / (snap.ChunkSize * snap.ChunkSize)
		ch.SetVoxel(v, x, y, z)
	}
	ch.RebuildTree()
	return ch
}

// trace walks the buffer exactly the way a traversal shader does and prints
// each level's byte on the way to p.
func trace(tree *octree.Tree, p octree.Point3D) {
	raw := tree.RawData()
	cell := octree.NewCell(octree.Point3D{}, octree.Uniform(tree.Size()))
	offset := 0

	for level := 0; ; level++ {
		children, ok := cell.Subdivide()
		if !ok {
			fmt.Printf("  leaf reached: occupied\n")
			return
		}
		idx := -1
		for i := range children {
			if children[i].Contains(p) {
				idx = i
				break
			}
		}
		if idx < 0 {
			fmt.Printf("  point %v outside the domain\n", p)
			return
		}

		b := raw[offset]
		fmt.Printf("  level %d: offset %d byte %#08b child %d (bit %s)\n",
			level, offset, b, idx, bitState(b, idx))
		if b&(1<<idx) == 0 {
			fmt.Printf("  empty: traversal stops here\n")
			return
		}
		offset = offset*8 + idx + 1
		cell = children[idx]
	}
}

func bitState(b byte, idx int) string {
	if b&(1<<idx) != 0 {
		return "set"
	}
	return "unset"
}

func findChunk(snap snapshot.SnapshotV1, cx, cy, cz int) (snapshot.ChunkV1, bool) {
	for _, sc := range snap.Chunks {
		if sc.CX == cx && sc.CY == cy && sc.CZ == cz {
			return sc, true
		}
	}
	return snapshot.ChunkV1{}, false
}

func parseTriple(s string) (x, y, z int, err error) {
	if _, err = fmt.Sscanf(s, "%d,%d,%d", &x, &y, &z); err != nil {
		return 0, 0, 0, fmt.Errorf("want x,y,z: %w", err)
	}
	return x, y, z, nil
}

func occupiedCount(voxels []uint16) int {
	n := 0
	for _, v := range voxels {
		if v != 0 {
			n++
		}
	}
	return n
}

func nonZero(b []byte) int {
	n := 0
	for _, v := range b {
		if v != 0 {
			n++
		}
	}
	return n
}
