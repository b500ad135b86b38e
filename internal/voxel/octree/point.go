package octree

// Point3D is an integer coordinate in voxel space.
type Point3D struct {
	X, Y, Z int
}

// Uniform returns the point (v, v, v).
func Uniform(v int) Point3D {
	return Point3D{X: v, Y: v, Z: v}
}

func (p Point3D) Add(q Point3D) Point3D {
	return Point3D{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

func (p Point3D) Mul(q Point3D) Point3D {
	return Point3D{X: p.X * q.X, Y: p.Y * q.Y, Z: p.Z * q.Z}
}

func (p Point3D) Div(q Point3D) Point3D {
	return Point3D{X: p.X / q.X, Y: p.Y / q.Y, Z: p.Z / q.Z}
}

func (p Point3D) AddScalar(s int) Point3D { return p.Add(Uniform(s)) }
func (p Point3D) SubScalar(s int) Point3D { return p.Sub(Uniform(s)) }
func (p Point3D) MulScalar(s int) Point3D { return p.Mul(Uniform(s)) }
func (p Point3D) DivScalar(s int) Point3D { return p.Div(Uniform(s)) }

// IsUniform reports whether all three components equal v.
func (p Point3D) IsUniform(v int) bool {
	return p.X == v && p.Y == v && p.Z == v
}
