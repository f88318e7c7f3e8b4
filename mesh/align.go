package mesh

// AlignScanner finds the pose that places mobile in ref's current frame.
//
// The first correspondence anchors the search: for each orientation, each
// endpoint of its mobile pair is tried as the image of its first reference
// beacon, which fixes the translation. A candidate is accepted only if every
// correspondence in matches lands exactly on its reference pair (in either
// endpoint order). Neither scanner is modified; the caller assigns the
// returned pose.
func AlignScanner(ref, mobile *Scanner, matches MatchSet, orientations []Rotation) (Pose, error) {
	if len(matches) == 0 {
		return Pose{}, &AlignmentError{Reference: ref.Label, Mobile: mobile.Label}
	}

	refWorld := ref.Beacons()
	anchor := matches[0]
	anchorPoint := refWorld[anchor.Ref[0]]

	for _, rot := range orientations {
		for _, target := range anchor.Mobile {
			candidate := Pose{
				Rotation:    rot,
				Translation: anchorPoint.Sub(rot.Apply(mobile.Local[target])),
			}
			if verifyPose(refWorld, mobile.Local, candidate, matches) {
				return candidate, nil
			}
		}
	}

	return Pose{}, &AlignmentError{Reference: ref.Label, Mobile: mobile.Label, Matches: len(matches)}
}

// VerifyPose reports whether placing mobile at pose makes every
// correspondence coincide with ref's current coordinates.
func VerifyPose(ref, mobile *Scanner, pose Pose, matches MatchSet) bool {
	return verifyPose(ref.Beacons(), mobile.Local, pose, matches)
}

func verifyPose(refWorld, mobileLocal []Vec3, pose Pose, matches MatchSet) bool {
	for _, c := range matches {
		r0, r1 := refWorld[c.Ref[0]], refWorld[c.Ref[1]]
		m0, m1 := pose.Apply(mobileLocal[c.Mobile[0]]), pose.Apply(mobileLocal[c.Mobile[1]])
		direct := r0 == m0 && r1 == m1
		crossed := r0 == m1 && r1 == m0
		if !direct && !crossed {
			return false
		}
	}
	return true
}
