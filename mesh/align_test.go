package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignScanner_RecoversInverseMotion(t *testing.T) {
	ref := NewScanner("ref", setP)
	mobile := observed("mobile", setP, testMotion)

	matches := MatchDistances(ref.Distances, mobile.Distances)
	require.Len(t, matches, 66)

	pose, err := AlignScanner(ref, mobile, matches, Orientations(true))
	require.NoError(t, err)

	assert.Equal(t, testMotion.Inverse(), pose)
	assert.Equal(t, Vec3{1000, 40, -250}, pose.Translation)
	assert.True(t, VerifyPose(ref, mobile, pose, matches))

	// Neither scanner is moved by the search
	assert.Equal(t, IdentityPose(), mobile.Pose)
	assert.Equal(t, IdentityPose(), ref.Pose)
}

func TestAlignScanner_PlacedReference(t *testing.T) {
	// Reference already sits at a non-identity pose
	refPose := Pose{Rotation: QuarterTurn(0, 3), Translation: Vec3{-500, 20, 7}}
	ref := observed("ref", concat(setP, setR), refPose.Inverse())
	ref.Pose = refPose

	mobileMotion := Pose{Rotation: Rotation{Perm: [3]int{2, 0, 1}, Signs: [3]int{-1, -1, 1}}, Translation: Vec3{300, 0, -60}}
	mobile := observed("mobile", concat(setR, setU), mobileMotion)

	matches := MatchDistances(ref.Distances, mobile.Distances)
	pose, err := AlignScanner(ref, mobile, matches, Orientations(true))
	require.NoError(t, err)
	assert.Equal(t, mobileMotion.Inverse(), pose)

	mobile.Pose = pose
	for i, b := range mobile.Beacons()[:len(setR)] {
		assert.Equal(t, setR[i], b)
	}
}

func TestAlignScanner_MirrorNeedsSignedPermutations(t *testing.T) {
	mirror := Pose{Rotation: Rotation{Perm: [3]int{0, 1, 2}, Signs: [3]int{-1, 1, 1}}, Translation: Vec3{5, 5, 5}}
	ref := NewScanner("ref", setP)
	mobile := observed("mobile", setP, mirror)
	matches := MatchDistances(ref.Distances, mobile.Distances)

	_, err := AlignScanner(ref, mobile, matches, Orientations(true))
	assert.ErrorIs(t, err, ErrAlignmentFailed)

	pose, err := AlignScanner(ref, mobile, matches, Orientations(false))
	require.NoError(t, err)
	assert.Equal(t, mirror.Inverse(), pose)
}

func TestAlignScanner_Failure(t *testing.T) {
	ref := NewScanner("--- scanner 0 ---", setP)
	mobile := NewScanner("--- scanner 7 ---", setP)

	tests := []struct {
		name    string
		matches MatchSet
		want    int
	}{
		{"no matches", nil, 0},
		{"inconsistent correspondences", MatchSet{{Ref: IndexPair{0, 1}, Mobile: IndexPair{2, 3}}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AlignScanner(ref, mobile, tt.matches, Orientations(false))
			require.Error(t, err)

			var alignErr *AlignmentError
			require.True(t, errors.As(err, &alignErr))
			assert.Equal(t, "--- scanner 0 ---", alignErr.Reference)
			assert.Equal(t, "--- scanner 7 ---", alignErr.Mobile)
			assert.Equal(t, tt.want, alignErr.Matches)
			assert.Contains(t, err.Error(), "--- scanner 7 ---")
		})
	}
}

func TestVerifyPose_RejectsWrongPose(t *testing.T) {
	ref := NewScanner("ref", setP)
	mobile := observed("mobile", setP, testMotion)
	matches := MatchDistances(ref.Distances, mobile.Distances)

	wrong := testMotion.Inverse()
	wrong.Translation = wrong.Translation.Add(Vec3{1, 0, 0})
	assert.False(t, VerifyPose(ref, mobile, wrong, matches))
}
