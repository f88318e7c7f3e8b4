package mesh

import "github.com/golang/geo/r3"

// Add returns v + o
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Neg returns -v
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Axis returns component i (0 = X, 1 = Y, 2 = Z).
func (v Vec3) Axis(i int) int {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Manhattan returns the L1 distance between v and o.
func (v Vec3) Manhattan(o Vec3) int {
	d := v.Sub(o)
	return abs(d.X) + abs(d.Y) + abs(d.Z)
}

// Distance returns the Euclidean distance between v and o.
// Every distance comparison in the package goes through this function so
// that two distances derived from the same integer offsets compare equal.
func (v Vec3) Distance(o Vec3) float64 {
	return v.r3().Distance(o.r3())
}

func (v Vec3) r3() r3.Vector {
	return r3.Vector{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
