package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Rotation is an axis-aligned orientation: component k of the result is
// Signs[k] times component Perm[k] of the input.
// The 48 combinations of a permutation and three signs contain the 24
// proper rotations plus their mirror images.
type Rotation struct {
	Perm  [3]int `json:"perm"`
	Signs [3]int `json:"signs"`
}

// IdentityRotation returns the rotation that leaves every vector unchanged
func IdentityRotation() Rotation {
	return Rotation{Perm: [3]int{0, 1, 2}, Signs: [3]int{1, 1, 1}}
}

// Apply rotates v
func (r Rotation) Apply(v Vec3) Vec3 {
	return Vec3{
		X: r.Signs[0] * v.Axis(r.Perm[0]),
		Y: r.Signs[1] * v.Axis(r.Perm[1]),
		Z: r.Signs[2] * v.Axis(r.Perm[2]),
	}
}

// Inverse returns the rotation that undoes r
func (r Rotation) Inverse() Rotation {
	var inv Rotation
	for k := 0; k < 3; k++ {
		inv.Perm[r.Perm[k]] = k
		inv.Signs[r.Perm[k]] = r.Signs[k]
	}
	return inv
}

// Compose returns the rotation equivalent to applying inner first, then r
func (r Rotation) Compose(inner Rotation) Rotation {
	var out Rotation
	for k := 0; k < 3; k++ {
		out.Perm[k] = inner.Perm[r.Perm[k]]
		out.Signs[k] = r.Signs[k] * inner.Signs[r.Perm[k]]
	}
	return out
}

// Matrix returns r as a 3x3 matrix acting on column vectors
func (r Rotation) Matrix() *mat.Dense {
	data := make([]float64, 9)
	for k := 0; k < 3; k++ {
		data[k*3+r.Perm[k]] = float64(r.Signs[k])
	}
	return mat.NewDense(3, 3, data)
}

// Det returns the determinant of r: +1 for a proper rotation, -1 for a reflection
func (r Rotation) Det() int {
	return int(math.Round(mat.Det(r.Matrix())))
}

// IsProper reports whether r preserves handedness
func (r Rotation) IsProper() bool {
	return r.Det() == 1
}

// String formats the rotation as signed axis names, e.g. "(-y,+x,+z)"
func (r Rotation) String() string {
	axes := [3]string{"x", "y", "z"}
	var parts [3]string
	for k := 0; k < 3; k++ {
		sign := "+"
		if r.Signs[k] < 0 {
			sign = "-"
		}
		parts[k] = sign + axes[r.Perm[k]]
	}
	return fmt.Sprintf("(%s,%s,%s)", parts[0], parts[1], parts[2])
}

// QuarterTurn returns a right-handed rotation of 90° * turns about the
// given axis (0 = X, 1 = Y, 2 = Z). Negative turns rotate the other way.
func QuarterTurn(axis, turns int) Rotation {
	var step Rotation
	switch axis {
	case 0: // (x, y, z) -> (x, -z, y)
		step = Rotation{Perm: [3]int{0, 2, 1}, Signs: [3]int{1, -1, 1}}
	case 1: // (x, y, z) -> (z, y, -x)
		step = Rotation{Perm: [3]int{2, 1, 0}, Signs: [3]int{1, 1, -1}}
	default: // (x, y, z) -> (-y, x, z)
		step = Rotation{Perm: [3]int{1, 0, 2}, Signs: [3]int{-1, 1, 1}}
	}

	turns = ((turns % 4) + 4) % 4
	r := IdentityRotation()
	for i := 0; i < turns; i++ {
		r = step.Compose(r)
	}
	return r
}

var (
	axisPermutations = [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	axisSigns        = [8][3]int{
		{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {1, -1, -1},
		{-1, 1, 1}, {-1, 1, -1}, {-1, -1, 1}, {-1, -1, -1},
	}
)

// Orientations enumerates candidate rotations in a fixed order: permutations
// outer, sign patterns inner. With properOnly the 24 reflections are dropped.
func Orientations(properOnly bool) []Rotation {
	out := make([]Rotation, 0, 48)
	for _, perm := range axisPermutations {
		for _, signs := range axisSigns {
			r := Rotation{Perm: perm, Signs: signs}
			if properOnly && !r.IsProper() {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

// Pose maps a scanner's local frame into another frame:
// world = Rotation.Apply(local) + Translation
type Pose struct {
	Rotation    Rotation `json:"rotation"`
	Translation Vec3     `json:"translation"`
}

// IdentityPose returns a pose that leaves coordinates unchanged
func IdentityPose() Pose {
	return Pose{Rotation: IdentityRotation()}
}

// Apply maps a local point into the pose's target frame
func (p Pose) Apply(v Vec3) Vec3 {
	return p.Rotation.Apply(v).Add(p.Translation)
}

// ApplyAll maps every point; the input slice is not modified
func (p Pose) ApplyAll(points []Vec3) []Vec3 {
	result := make([]Vec3, len(points))
	for i, v := range points {
		result[i] = p.Apply(v)
	}
	return result
}

// Inverse returns the pose mapping the target frame back to the local frame
func (p Pose) Inverse() Pose {
	inv := p.Rotation.Inverse()
	return Pose{Rotation: inv, Translation: inv.Apply(p.Translation).Neg()}
}

// Compose returns the pose equivalent to applying inner first, then p
func (p Pose) Compose(inner Pose) Pose {
	return Pose{
		Rotation:    p.Rotation.Compose(inner.Rotation),
		Translation: p.Rotation.Apply(inner.Translation).Add(p.Translation),
	}
}
