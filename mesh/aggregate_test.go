package mesh

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountBeacons(t *testing.T) {
	a := NewScanner("a", setP)
	b := NewScanner("b", concat(setP[:6], setU))

	tests := []struct {
		name     string
		scanners []*Scanner
		want     int
	}{
		{"none", nil, 0},
		{"one scanner", []*Scanner{a}, 12},
		{"shared beacons counted once", []*Scanner{a, b}, 15},
		{"same scanner twice", []*Scanner{a, a}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountBeacons(tt.scanners))
		})
	}
}

func TestCountBeacons_UsesWorldCoordinates(t *testing.T) {
	a := NewScanner("a", setP)
	b := observed("b", setP, testMotion)

	// Before placement b's local coordinates differ from a's
	assert.Equal(t, 24, CountBeacons([]*Scanner{a, b}))

	b.Pose = testMotion.Inverse()
	assert.Equal(t, 12, CountBeacons([]*Scanner{a, b}))
}

func TestMaxManhattan(t *testing.T) {
	place := func(label string, origin Vec3) *Scanner {
		s := NewScanner(label, nil)
		s.Pose.Translation = origin
		return s
	}

	tests := []struct {
		name     string
		scanners []*Scanner
		want     int
		wantA    string
		wantB    string
	}{
		{"none", nil, 0, "", ""},
		{"one", []*Scanner{place("a", Vec3{5, 5, 5})}, 0, "a", "a"},
		{
			"pair not involving reference",
			[]*Scanner{place("a", Vec3{}), place("b", Vec3{-10, 0, 0}), place("c", Vec3{10, 0, 3})},
			23, "b", "c",
		},
		{
			"first pair wins a tie",
			[]*Scanner{place("a", Vec3{}), place("b", Vec3{1, 1, 1}), place("c", Vec3{-1, -1, -1})},
			6, "b", "c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, a, b := MaxManhattan(tt.scanners)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantA, a)
			assert.Equal(t, tt.wantB, b)
		})
	}
}

func TestBuildResult(t *testing.T) {
	scanners := loadFixture(t, "chain.txt")
	for i, s := range scanners {
		s.Pose = chainPoses[i]
	}

	before := time.Now().UTC()
	result := BuildResult(scanners, nil)

	_, err := uuid.Parse(result.RunID)
	require.NoError(t, err, "RunID should be a UUID")
	assert.Equal(t, "--- scanner 0 ---", result.Reference)
	assert.Equal(t, 27, result.BeaconCount)
	assert.Equal(t, 3539, result.MaxManhattan)
	assert.False(t, result.CompletedAt.Before(before))
	require.Len(t, result.Scanners, 3)
	assert.Equal(t, ScannerPlacement{
		Label:    "--- scanner 2 ---",
		Origin:   Vec3{1105, -1205, 1229},
		Rotation: chainPoses[2].Rotation,
		Beacons:  15,
	}, result.Scanners[2])

	assert.NotEqual(t, result.RunID, BuildResult(scanners, nil).RunID)
}
