package mesh

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

// UniqueBeacons returns the distinct beacon positions across all scanners
// in their current poses.
func UniqueBeacons(scanners []*Scanner) mapset.Set[Vec3] {
	beacons := mapset.NewThreadUnsafeSet[Vec3]()
	for _, s := range scanners {
		for _, b := range s.Beacons() {
			beacons.Add(b)
		}
	}
	return beacons
}

// CountBeacons returns the number of distinct beacons across all scanners
func CountBeacons(scanners []*Scanner) int {
	return UniqueBeacons(scanners).Cardinality()
}

// MaxManhattan returns the largest Manhattan distance between any two scanner
// origins and the labels of that pair. With fewer than two scanners the
// distance is 0 and the labels name the only scanner, if any.
func MaxManhattan(scanners []*Scanner) (int, string, string) {
	if len(scanners) == 0 {
		return 0, "", ""
	}
	best, a, b := 0, scanners[0].Label, scanners[0].Label
	for i := 0; i < len(scanners); i++ {
		oi := scanners[i].Origin()
		for j := i + 1; j < len(scanners); j++ {
			if d := oi.Manhattan(scanners[j].Origin()); d > best {
				best, a, b = d, scanners[i].Label, scanners[j].Label
			}
		}
	}
	return best, a, b
}

// BuildResult summarizes scanners in their current poses
func BuildResult(scanners []*Scanner, placements []Placement) *Result {
	dist, a, b := MaxManhattan(scanners)
	result := &Result{
		RunID:        uuid.NewString(),
		BeaconCount:  CountBeacons(scanners),
		MaxManhattan: dist,
		FarthestPair: [2]string{a, b},
		Scanners:     make([]ScannerPlacement, len(scanners)),
		Placements:   placements,
		CompletedAt:  time.Now().UTC(),
	}
	if len(scanners) > 0 {
		result.Reference = scanners[0].Label
	}
	for i, s := range scanners {
		result.Scanners[i] = ScannerPlacement{
			Label:    s.Label,
			Origin:   s.Origin(),
			Rotation: s.Pose.Rotation,
			Beacons:  len(s.Local),
		}
	}
	return result
}
