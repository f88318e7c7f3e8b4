package mesh

import (
	"path/filepath"
	"testing"
)

// Point sets with no repeated pairwise distance inside or across sets, so
// the only equal-distance matches are the ones the tests plant.
var (
	setP = []Vec3{
		{-285, 570, 261}, {700, -561, 178}, {628, 598, -387}, {-683, 87, 571},
		{636, -107, 604}, {-620, 466, 417}, {505, 30, -182}, {-269, -159, 342},
		{-50, -574, -650}, {-125, 638, -269}, {-569, -297, -99}, {372, 254, 329},
	}
	setR = []Vec3{
		{-422, -38, 350}, {-166, 451, -74}, {612, 695, 382}, {-116, 622, 333},
		{465, 179, 279}, {-573, -242, -384}, {-620, 238, -463}, {350, 510, -494},
		{-167, 256, 76}, {-36, -25, 56}, {-317, 211, -21}, {-507, 602, 667},
	}
	setU = []Vec3{{650, 383, 221}, {146, 564, -617}, {41, -509, -51}}
	setV = []Vec3{
		{194, 51, 237}, {515, 51, -608}, {-95, -164, -139}, {-520, -237, 102},
		{-635, -352, -361}, {262, 659, 435}, {-482, 521, 353}, {-514, -626, 503},
		{192, -605, 697}, {-414, 555, -36}, {-198, 409, 417}, {-632, -133, -309},
	}

	// Extra beacons that share no distance with setP[:11]
	extraA = Vec3{-397, -189, -108}
	extraB = Vec3{-452, 507, 209}
)

// testMotion rotates a quarter turn about Z and then shifts
var testMotion = Pose{Rotation: QuarterTurn(2, 1), Translation: Vec3{40, -1000, 250}}

func concat(sets ...[]Vec3) []Vec3 {
	var out []Vec3
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// observed returns a scanner that sees world through motion, i.e. its local
// coordinates are motion.Apply(world).
func observed(label string, world []Vec3, motion Pose) *Scanner {
	return NewScanner(label, motion.ApplyAll(world))
}

func loadFixture(t *testing.T, name string) []*Scanner {
	t.Helper()
	scanners, err := ParseScannerFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("ParseScannerFile(%s) error = %v", name, err)
	}
	return scanners
}

// chainPoses are the poses chain.txt was generated with, relative to scanner 0
var chainPoses = []Pose{
	IdentityPose(),
	{Rotation: Rotation{Perm: [3]int{1, 2, 0}, Signs: [3]int{1, -1, -1}}, Translation: Vec3{68, -1246, -43}},
	{Rotation: Rotation{Perm: [3]int{2, 1, 0}, Signs: [3]int{-1, 1, 1}}, Translation: Vec3{1105, -1205, 1229}},
}
