package octree

// Cell is an axis-aligned cube at some subdivision level of the domain.
// Position is the minimum corner; Extend is the half-open size along each
// axis, so the cell spans [Position, Position+Extend).
type Cell struct {
	Position Point3D
	Extend   Point3D
}

// NewCell builds a cell without validation.
func NewCell(position, extend Point3D) Cell {
	return Cell{Position: position, Extend: extend}
}

// Subdivide splits the cell into its 8 children of half extent. A unit cell
// cannot be subdivided; ok is false and the recursion terminates there.
//
// The child order is fixed: bit 0 of the child index selects the z offset,
// bit 1 the y offset, bit 2 the x offset. The octree stores one bit per
// child at exactly that index, and the traversal shader decodes the buffer
// with the same order, so this enumeration is part of the wire contract.
func (c Cell) Subdivide() (children [8]Cell, ok bool) {
	if c.Extend.IsUniform(1) {
		return children, false
	}
	half := c.Extend.DivScalar(2)
	for i := range children {
		children[i] = Cell{
			Position: c.Position.Add(Point3D{
				X: (i >> 2 & 1) * half.X,
				Y: (i >> 1 & 1) * half.Y,
				Z: (i & 1) * half.Z,
			}),
			Extend: half,
		}
	}
	return children, true
}

// Contains reports whether p lies inside the cell's half-open volume.
func (c Cell) Contains(p Point3D) bool {
	return p.X >= c.Position.X && p.X < c.Position.X+c.Extend.X &&
		p.Y >= c.Position.Y && p.Y < c.Position.Y+c.Extend.Y &&
		p.Z >= c.Position.Z && p.Z < c.Position.Z+c.Extend.Z
}
