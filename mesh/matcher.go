package mesh

// IndexPair is an unordered pair of beacon indices within one scanner.
type IndexPair [2]int

// Correspondence pairs a beacon pair of the reference scanner with a beacon
// pair of the mobile scanner that lies the same distance apart. The order
// of the two endpoints is not known to match.
type Correspondence struct {
	Ref    IndexPair `json:"ref"`
	Mobile IndexPair `json:"mobile"`
}

// MatchSet is the list of candidate correspondences between two scanners.
type MatchSet []Correspondence

// MatchDistances returns every pair of records, one from each index, whose
// distances are equal. Results are ordered by reference record, then mobile
// record, as a nested scan of both indexes would produce them.
func MatchDistances(ref, mobile DistanceIndex) MatchSet {
	groups := mobile.byDistance()
	var matches MatchSet
	for _, r := range ref {
		for _, m := range groups[r.Distance] {
			matches = append(matches, Correspondence{
				Ref:    IndexPair{r.I, r.J},
				Mobile: IndexPair{m.I, m.J},
			})
		}
	}
	return matches
}

// Swap returns the same correspondences with the reference and mobile sides exchanged
func (m MatchSet) Swap() MatchSet {
	swapped := make(MatchSet, len(m))
	for i, c := range m {
		swapped[i] = Correspondence{Ref: c.Mobile, Mobile: c.Ref}
	}
	return swapped
}

// RequiredPairs returns the number of equal-distance matches expected from
// minShared common beacons, C(minShared, 2), less a tolerance for missed pairs.
// Twelve shared beacons and no tolerance give 66.
func RequiredPairs(minShared, tolerance int) int {
	if minShared < 2 {
		return 1
	}
	required := minShared*(minShared-1)/2 - tolerance
	if required < 1 {
		return 1
	}
	return required
}

// Overlaps reports whether a match set is large enough to treat two scanners
// as sharing at least the configured number of beacons. Accidental distance
// collisions between unrelated beacons are assumed not to occur.
func Overlaps(matches MatchSet, required int) bool {
	return len(matches) >= required
}
